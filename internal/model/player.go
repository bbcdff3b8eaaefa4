package model

import "time"

// PlayerIdentity is the stable wallet-style address identifying a player.
// It is supplied by the client at authentication time and never derived
// server-side from the transport layer.
type PlayerIdentity string

// RoomPlayer is one occupant of a battle room.
type RoomPlayer struct {
	Identity    PlayerIdentity
	DisplayName string
	Ready       bool
}

// QueueEntry is a waiting player's matchmaking record.
// At most one entry exists per identity at any time.
type QueueEntry struct {
	Identity    PlayerIdentity
	DisplayName string
	Wager       float64
	JoinedAt    time.Time
}
