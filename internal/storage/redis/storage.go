package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// The matchmaking queue is a sorted set scored by wager so the pairing
// pass can scan entries in wager order.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.BattleRoom) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	// Every write refreshes the TTL back to the ceiling
	return s.client.Set(ctx, roomKey(room.ID), data, s.cfg.RoomTTL).Err()
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.BattleRoom, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.BattleRoom
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	return s.client.Del(ctx, roomKey(id)).Err()
}

// Room key operations

func (s *Storage) SaveRoomKey(ctx context.Context, key model.RoomKey, id model.RoomID) error {
	return s.client.Set(ctx, roomKeyIndexKey(key), string(id), s.cfg.RoomTTL).Err()
}

func (s *Storage) GetRoomIDByKey(ctx context.Context, key model.RoomKey) (model.RoomID, error) {
	id, err := s.client.Get(ctx, roomKeyIndexKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrRoomKeyNotFound
		}
		return "", err
	}
	return model.RoomID(id), nil
}

func (s *Storage) DeleteRoomKey(ctx context.Context, key model.RoomKey) error {
	return s.client.Del(ctx, roomKeyIndexKey(key)).Err()
}

func (s *Storage) RoomKeyExists(ctx context.Context, key model.RoomKey) (bool, error) {
	exists, err := s.client.Exists(ctx, roomKeyIndexKey(key)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Player -> room index

func (s *Storage) SetPlayerRoom(ctx context.Context, identity model.PlayerIdentity, id model.RoomID) error {
	return s.client.Set(ctx, playerRoomKey(identity), string(id), s.cfg.RoomTTL).Err()
}

func (s *Storage) GetPlayerRoom(ctx context.Context, identity model.PlayerIdentity) (model.RoomID, error) {
	id, err := s.client.Get(ctx, playerRoomKey(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrPlayerRoomMissing
		}
		return "", err
	}
	return model.RoomID(id), nil
}

func (s *Storage) DeletePlayerRoom(ctx context.Context, identity model.PlayerIdentity) error {
	return s.client.Del(ctx, playerRoomKey(identity)).Err()
}

// Matchmaking queue operations

func (s *Storage) QueueAdd(ctx context.Context, entry *model.QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	// Pipeline the sorted-set member and the entry record together
	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, queueKey(), redis.Z{
		Score:  entry.Wager,
		Member: string(entry.Identity),
	})
	pipe.Set(ctx, queueEntryKey(entry.Identity), data, s.cfg.QueueEntryTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) QueueRemove(ctx context.Context, identity model.PlayerIdentity) (bool, error) {
	removed, err := s.client.ZRem(ctx, queueKey(), string(identity)).Result()
	if err != nil {
		return false, err
	}
	if err := s.client.Del(ctx, queueEntryKey(identity)).Err(); err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (s *Storage) QueueEntries(ctx context.Context) ([]*model.QueueEntry, error) {
	members, err := s.client.ZRange(ctx, queueKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(members) == 0 {
		return []*model.QueueEntry{}, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = queueEntryKey(model.PlayerIdentity(m))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*model.QueueEntry, 0, len(values))
	for i, val := range values {
		if val == nil {
			// Entry record expired out from under the sorted set
			_, _ = s.client.ZRem(ctx, queueKey(), members[i]).Result()
			continue
		}
		var entry model.QueueEntry
		if err := json.Unmarshal([]byte(val.(string)), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

func (s *Storage) QueueContains(ctx context.Context, identity model.PlayerIdentity) (bool, error) {
	_, err := s.client.ZScore(ctx, queueKey(), string(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Storage) QueueSize(ctx context.Context) (int, error) {
	size, err := s.client.ZCard(ctx, queueKey()).Result()
	if err != nil {
		return 0, err
	}
	return int(size), nil
}
