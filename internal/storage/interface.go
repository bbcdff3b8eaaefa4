package storage

import (
	"context"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
)

// Storage defines the interface for battle-server state persistence.
// Each entity type is exclusively owned by one service: rooms and room
// keys by the room manager, queue entries by the matchmaking service.
type Storage interface {
	// Room operations. SaveRoom refreshes the room's TTL on every write
	// so abandoned rooms self-expire.
	SaveRoom(ctx context.Context, room *model.BattleRoom) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.BattleRoom, error)
	DeleteRoom(ctx context.Context, id model.RoomID) error

	// Private room key mapping
	SaveRoomKey(ctx context.Context, key model.RoomKey, id model.RoomID) error
	GetRoomIDByKey(ctx context.Context, key model.RoomKey) (model.RoomID, error)
	DeleteRoomKey(ctx context.Context, key model.RoomKey) error
	RoomKeyExists(ctx context.Context, key model.RoomKey) (bool, error)

	// Player -> room index
	SetPlayerRoom(ctx context.Context, identity model.PlayerIdentity, id model.RoomID) error
	GetPlayerRoom(ctx context.Context, identity model.PlayerIdentity) (model.RoomID, error)
	DeletePlayerRoom(ctx context.Context, identity model.PlayerIdentity) error

	// Matchmaking queue, ordered by wager ascending
	QueueAdd(ctx context.Context, entry *model.QueueEntry) error
	QueueRemove(ctx context.Context, identity model.PlayerIdentity) (bool, error)
	QueueEntries(ctx context.Context) ([]*model.QueueEntry, error)
	QueueContains(ctx context.Context, identity model.PlayerIdentity) (bool, error)
	QueueSize(ctx context.Context) (int, error)
}
