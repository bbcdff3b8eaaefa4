package model

import "time"

// RoomID uniquely identifies a battle room.
type RoomID string

// RoomKey is a short human-shareable code for joining a private room.
type RoomKey string

// RoomStatus represents the lifecycle state of a battle room.
// Status only ever moves forward: waiting -> countdown -> active -> ended.
type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "waiting"   // One player, or both present but not counting down
	RoomStatusCountdown RoomStatus = "countdown" // Both ready, 3-2-1 in progress
	RoomStatusActive    RoomStatus = "active"    // Battle running
	RoomStatusEnded     RoomStatus = "ended"     // Outcome decided, awaiting cleanup
)

// BattleRoom is the session container for exactly two matched players
// and one wager. Player2 is nil only while Status is waiting.
type BattleRoom struct {
	ID        RoomID
	Key       RoomKey // empty for public rooms
	Player1   RoomPlayer
	Player2   *RoomPlayer
	Wager     float64
	Status    RoomStatus
	Seed      int64      // shared piece-sequence seed, set at game start
	StartTime *time.Time // set when Status becomes active
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Occupant returns the room player with the given identity, or nil.
func (r *BattleRoom) Occupant(identity PlayerIdentity) *RoomPlayer {
	if r.Player1.Identity == identity {
		return &r.Player1
	}
	if r.Player2 != nil && r.Player2.Identity == identity {
		return r.Player2
	}
	return nil
}

// Opponent returns the other occupant of the room, or nil if the given
// identity is not in the room or the room has a single occupant.
func (r *BattleRoom) Opponent(identity PlayerIdentity) *RoomPlayer {
	if r.Player1.Identity == identity {
		return r.Player2
	}
	if r.Player2 != nil && r.Player2.Identity == identity {
		return &r.Player1
	}
	return nil
}

// IsFull reports whether both player slots are occupied.
func (r *BattleRoom) IsFull() bool {
	return r.Player2 != nil
}

// BothReady reports whether both occupants have checked ready.
func (r *BattleRoom) BothReady() bool {
	return r.Player2 != nil && r.Player1.Ready && r.Player2.Ready
}

// Identities returns the identities of all current occupants.
func (r *BattleRoom) Identities() []PlayerIdentity {
	ids := []PlayerIdentity{r.Player1.Identity}
	if r.Player2 != nil {
		ids = append(ids, r.Player2.Identity)
	}
	return ids
}
