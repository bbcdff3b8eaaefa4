package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.RoomTTL = time.Hour
	cfg.QueueEntryTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Room tests

func (s *StorageSuite) TestSaveAndGetRoom() {
	now := time.Now().UTC().Truncate(time.Second)
	room := &model.BattleRoom{
		ID:        "room-1",
		Key:       "ABC234",
		Player1:   model.RoomPlayer{Identity: "0xAAA", DisplayName: "Alice"},
		Player2:   &model.RoomPlayer{Identity: "0xBBB", DisplayName: "Bob", Ready: true},
		Wager:     25,
		Status:    model.RoomStatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.storage.SaveRoom(s.ctx, room)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(room.ID, retrieved.ID)
	s.Equal(room.Key, retrieved.Key)
	s.Equal(room.Wager, retrieved.Wager)
	s.Require().NotNil(retrieved.Player2)
	s.True(retrieved.Player2.Ready)
}

func (s *StorageSuite) TestGetRoomNotFound() {
	_, err := s.storage.GetRoom(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestRoomTTLSet() {
	room := &model.BattleRoom{ID: "room-1"}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	ttl := s.mini.TTL("tetrichain:room:room-1")
	s.Equal(time.Hour, ttl)
}

func (s *StorageSuite) TestRoomTTLRefreshedOnSave() {
	room := &model.BattleRoom{ID: "room-1"}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	s.mini.FastForward(30 * time.Minute)
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	ttl := s.mini.TTL("tetrichain:room:room-1")
	s.Equal(time.Hour, ttl)
}

func (s *StorageSuite) TestRoomExpires() {
	room := &model.BattleRoom{ID: "room-1"}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetRoom(s.ctx, "room-1")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestDeleteRoom() {
	room := &model.BattleRoom{ID: "room-1"}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	s.Require().NoError(s.storage.DeleteRoom(s.ctx, "room-1"))

	_, err := s.storage.GetRoom(s.ctx, "room-1")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Room key tests

func (s *StorageSuite) TestRoomKeyRoundTrip() {
	s.Require().NoError(s.storage.SaveRoomKey(s.ctx, "ABC234", "room-1"))

	id, err := s.storage.GetRoomIDByKey(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(model.RoomID("room-1"), id)

	exists, err := s.storage.RoomKeyExists(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestRoomKeyNotFound() {
	_, err := s.storage.GetRoomIDByKey(s.ctx, "MISSING")
	s.ErrorIs(err, model.ErrRoomKeyNotFound)
}

func (s *StorageSuite) TestDeleteRoomKey() {
	s.Require().NoError(s.storage.SaveRoomKey(s.ctx, "ABC234", "room-1"))
	s.Require().NoError(s.storage.DeleteRoomKey(s.ctx, "ABC234"))

	exists, err := s.storage.RoomKeyExists(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.False(exists)
}

// Player room index tests

func (s *StorageSuite) TestPlayerRoomIndex() {
	s.Require().NoError(s.storage.SetPlayerRoom(s.ctx, "0xAAA", "room-1"))

	id, err := s.storage.GetPlayerRoom(s.ctx, "0xAAA")
	s.Require().NoError(err)
	s.Equal(model.RoomID("room-1"), id)

	s.Require().NoError(s.storage.DeletePlayerRoom(s.ctx, "0xAAA"))
	_, err = s.storage.GetPlayerRoom(s.ctx, "0xAAA")
	s.ErrorIs(err, model.ErrPlayerRoomMissing)
}

// Queue tests

func (s *StorageSuite) TestQueueAddAndContains() {
	entry := &model.QueueEntry{Identity: "0xAAA", Wager: 10, JoinedAt: time.Now().UTC()}
	s.Require().NoError(s.storage.QueueAdd(s.ctx, entry))

	contains, err := s.storage.QueueContains(s.ctx, "0xAAA")
	s.Require().NoError(err)
	s.True(contains)

	size, err := s.storage.QueueSize(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, size)
}

func (s *StorageSuite) TestQueueRemove() {
	entry := &model.QueueEntry{Identity: "0xAAA", Wager: 10}
	s.Require().NoError(s.storage.QueueAdd(s.ctx, entry))

	removed, err := s.storage.QueueRemove(s.ctx, "0xAAA")
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.storage.QueueRemove(s.ctx, "0xAAA")
	s.Require().NoError(err)
	s.False(removed)
}

func (s *StorageSuite) TestQueueEntriesSortedByWager() {
	s.Require().NoError(s.storage.QueueAdd(s.ctx, &model.QueueEntry{Identity: "0xCCC", Wager: 30}))
	s.Require().NoError(s.storage.QueueAdd(s.ctx, &model.QueueEntry{Identity: "0xAAA", Wager: 10}))
	s.Require().NoError(s.storage.QueueAdd(s.ctx, &model.QueueEntry{Identity: "0xBBB", Wager: 20}))

	entries, err := s.storage.QueueEntries(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(model.PlayerIdentity("0xAAA"), entries[0].Identity)
	s.Equal(model.PlayerIdentity("0xBBB"), entries[1].Identity)
	s.Equal(model.PlayerIdentity("0xCCC"), entries[2].Identity)
}

func (s *StorageSuite) TestQueueEntriesSelfHealsExpiredRecords() {
	s.Require().NoError(s.storage.QueueAdd(s.ctx, &model.QueueEntry{Identity: "0xAAA", Wager: 10}))
	s.Require().NoError(s.storage.QueueAdd(s.ctx, &model.QueueEntry{Identity: "0xBBB", Wager: 20}))

	// Expire one entry record while leaving its sorted-set member
	s.mini.Del("tetrichain:mm:entry:0xAAA")

	entries, err := s.storage.QueueEntries(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(model.PlayerIdentity("0xBBB"), entries[0].Identity)

	// The dangling member was removed from the sorted set
	size, err := s.storage.QueueSize(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, size)
}
