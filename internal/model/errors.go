package model

import "errors"

// Common errors used across the application
var (
	// Authentication errors
	ErrInvalidIdentity    = errors.New("missing or malformed player identity")
	ErrInvalidDisplayName = errors.New("missing display name")

	// Matchmaking errors
	ErrInvalidWager = errors.New("wager must be positive")

	// Room errors
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomKeyNotFound = errors.New("room key not found")
	ErrRoomFull        = errors.New("room is full")
	ErrNotInRoom       = errors.New("player is not in room")

	// Index errors
	ErrPlayerRoomMissing = errors.New("player has no room")

	// External collaborator errors
	ErrNameUnavailable = errors.New("display name unavailable")
)
