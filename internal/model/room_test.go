package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func twoPlayerRoom() *BattleRoom {
	return &BattleRoom{
		ID:      "room-1",
		Player1: RoomPlayer{Identity: "0xAAA", DisplayName: "Alice"},
		Player2: &RoomPlayer{Identity: "0xBBB", DisplayName: "Bob"},
		Status:  RoomStatusWaiting,
	}
}

func TestOccupant(t *testing.T) {
	room := twoPlayerRoom()

	assert.Equal(t, "Alice", room.Occupant("0xAAA").DisplayName)
	assert.Equal(t, "Bob", room.Occupant("0xBBB").DisplayName)
	assert.Nil(t, room.Occupant("0xCCC"))
}

func TestOpponent(t *testing.T) {
	room := twoPlayerRoom()

	assert.Equal(t, "Bob", room.Opponent("0xAAA").DisplayName)
	assert.Equal(t, "Alice", room.Opponent("0xBBB").DisplayName)
	assert.Nil(t, room.Opponent("0xCCC"))
}

func TestOpponentOfSoloRoom(t *testing.T) {
	room := &BattleRoom{Player1: RoomPlayer{Identity: "0xAAA"}}

	assert.Nil(t, room.Opponent("0xAAA"))
	assert.False(t, room.IsFull())
}

func TestBothReady(t *testing.T) {
	room := twoPlayerRoom()
	assert.False(t, room.BothReady())

	room.Player1.Ready = true
	assert.False(t, room.BothReady())

	room.Player2.Ready = true
	assert.True(t, room.BothReady())
}

func TestIdentities(t *testing.T) {
	room := twoPlayerRoom()
	assert.Equal(t, []PlayerIdentity{"0xAAA", "0xBBB"}, room.Identities())

	solo := &BattleRoom{Player1: RoomPlayer{Identity: "0xAAA"}}
	assert.Equal(t, []PlayerIdentity{"0xAAA"}, solo.Identities())
}

func TestOccupantMutationPersists(t *testing.T) {
	room := twoPlayerRoom()

	room.Occupant("0xAAA").Ready = true
	assert.True(t, room.Player1.Ready)
}
