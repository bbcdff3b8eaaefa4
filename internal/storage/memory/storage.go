package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/storage"
)

// Storage is the in-process fallback implementation of the storage
// interface. It provides no persistence across restarts.
type Storage struct {
	mu sync.RWMutex

	rooms       map[model.RoomID]*model.BattleRoom
	roomKeys    map[model.RoomKey]model.RoomID
	playerRooms map[model.PlayerIdentity]model.RoomID
	queue       map[model.PlayerIdentity]*model.QueueEntry
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:       make(map[model.RoomID]*model.BattleRoom),
		roomKeys:    make(map[model.RoomKey]model.RoomID),
		playerRooms: make(map[model.PlayerIdentity]model.RoomID),
		queue:       make(map[model.PlayerIdentity]*model.QueueEntry),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.BattleRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *room
	if room.Player2 != nil {
		p2 := *room.Player2
		copied.Player2 = &p2
	}
	s.rooms[room.ID] = &copied
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.BattleRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	copied := *room
	if room.Player2 != nil {
		p2 := *room.Player2
		copied.Player2 = &p2
	}
	return &copied, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}

// Room key operations

func (s *Storage) SaveRoomKey(ctx context.Context, key model.RoomKey, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomKeys[key] = id
	return nil
}

func (s *Storage) GetRoomIDByKey(ctx context.Context, key model.RoomKey) (model.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.roomKeys[key]
	if !ok {
		return "", model.ErrRoomKeyNotFound
	}
	return id, nil
}

func (s *Storage) DeleteRoomKey(ctx context.Context, key model.RoomKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roomKeys, key)
	return nil
}

func (s *Storage) RoomKeyExists(ctx context.Context, key model.RoomKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roomKeys[key]
	return ok, nil
}

// Player -> room index

func (s *Storage) SetPlayerRoom(ctx context.Context, identity model.PlayerIdentity, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerRooms[identity] = id
	return nil
}

func (s *Storage) GetPlayerRoom(ctx context.Context, identity model.PlayerIdentity) (model.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.playerRooms[identity]
	if !ok {
		return "", model.ErrPlayerRoomMissing
	}
	return id, nil
}

func (s *Storage) DeletePlayerRoom(ctx context.Context, identity model.PlayerIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.playerRooms, identity)
	return nil
}

// Matchmaking queue operations

func (s *Storage) QueueAdd(ctx context.Context, entry *model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.queue[entry.Identity] = &copied
	return nil
}

func (s *Storage) QueueRemove(ctx context.Context, identity model.PlayerIdentity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.queue[identity]
	if !ok {
		return false, nil
	}
	delete(s.queue, identity)
	return true, nil
}

func (s *Storage) QueueEntries(ctx context.Context) ([]*model.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*model.QueueEntry, 0, len(s.queue))
	for _, e := range s.queue {
		copied := *e
		entries = append(entries, &copied)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wager != entries[j].Wager {
			return entries[i].Wager < entries[j].Wager
		}
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})
	return entries, nil
}

func (s *Storage) QueueContains(ctx context.Context, identity model.PlayerIdentity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.queue[identity]
	return ok, nil
}

func (s *Storage) QueueSize(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue), nil
}
