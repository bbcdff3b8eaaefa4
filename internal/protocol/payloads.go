package protocol

import "encoding/json"

// --- Client -> server payloads ---

// AuthPayload asserts the player's identity on connect.
type AuthPayload struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

// MatchmakingJoinPayload enters the wager queue.
type MatchmakingJoinPayload struct {
	Wager float64 `json:"wager"`
}

// RoomCreatePayload creates a new battle room.
type RoomCreatePayload struct {
	Wager     float64 `json:"wager"`
	IsPrivate bool    `json:"isPrivate"`
}

// RoomJoinPayload joins a private room by its shareable key.
type RoomJoinPayload struct {
	RoomKey string `json:"roomKey"`
}

// RoomReadyPayload toggles the player's ready state.
type RoomReadyPayload struct {
	RoomID string `json:"roomId"`
	Ready  bool   `json:"ready"`
}

// RoomLeavePayload leaves a room.
type RoomLeavePayload struct {
	RoomID string `json:"roomId"`
}

// GameMovePayload is a piece movement event.
type GameMovePayload struct {
	RoomID    string `json:"roomId"`
	Direction string `json:"direction"`
}

// GameRotatePayload is a piece rotation event.
type GameRotatePayload struct {
	RoomID    string `json:"roomId"`
	Direction string `json:"direction"`
}

// GameDropPayload is a hard-drop event.
type GameDropPayload struct {
	RoomID string `json:"roomId"`
}

// GameStatePayload is a full board snapshot. State is opaque to the
// server and forwarded verbatim.
type GameStatePayload struct {
	RoomID string          `json:"roomId"`
	State  json.RawMessage `json:"state"`
}

// GameLinesClearedPayload reports a line clear.
type GameLinesClearedPayload struct {
	RoomID string `json:"roomId"`
	Lines  int    `json:"lines"`
}

// GameOverPayload reports that the sender's board has topped out.
type GameOverPayload struct {
	RoomID string `json:"roomId"`
}

// --- Server -> client payloads ---

// PlayerInfo is one occupant as exposed to clients.
type PlayerInfo struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	Ready       bool   `json:"ready"`
}

// RoomInfo is the client view of a battle room.
type RoomInfo struct {
	RoomID  string       `json:"roomId"`
	RoomKey string       `json:"roomKey,omitempty"`
	Wager   float64      `json:"wager"`
	Status  string       `json:"status"`
	Players []PlayerInfo `json:"players"`
}

// AuthSuccessPayload confirms authentication.
type AuthSuccessPayload struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

// ErrorPayload carries a human-readable failure message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// MatchFoundPayload tells a queued player their match was made.
type MatchFoundPayload struct {
	RoomID       string  `json:"roomId"`
	Opponent     string  `json:"opponent"`
	OpponentName string  `json:"opponentName"`
	Wager        float64 `json:"wager"`
}

// RoomCreatedPayload returns the newly created room.
type RoomCreatedPayload struct {
	Room RoomInfo `json:"room"`
}

// RoomJoinedPayload returns the joined room to the joiner.
type RoomJoinedPayload struct {
	Room RoomInfo `json:"room"`
}

// PlayerJoinedPayload tells the existing occupant who joined.
type PlayerJoinedPayload struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

// PlayerReadyPayload broadcasts a ready-state change.
type PlayerReadyPayload struct {
	Identity string `json:"identity"`
	Ready    bool   `json:"ready"`
}

// RoomClosedPayload tells occupants the room was torn down.
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// CountdownPayload carries one tick of the 3-2-1 countdown.
type CountdownPayload struct {
	Count int `json:"count"`
}

// GameStartPayload flips the battle to active. Seed drives both clients'
// deterministic piece generation.
type GameStartPayload struct {
	RoomID    string `json:"roomId"`
	StartTime int64  `json:"startTime"` // unix millis
	Seed      int64  `json:"seed"`
}

// OpponentActionPayload is a relayed move/rotate/drop with a server
// receipt timestamp. Direction is empty for drops.
type OpponentActionPayload struct {
	Direction string `json:"direction,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// OpponentStatePayload is a relayed full-state snapshot.
type OpponentStatePayload struct {
	State     json.RawMessage `json:"state"`
	Timestamp int64           `json:"timestamp"`
}

// GarbageIncomingPayload delivers penalty lines to the opponent.
type GarbageIncomingPayload struct {
	FromPlayer string `json:"fromPlayer"`
	ToPlayer   string `json:"toPlayer"`
	Lines      int    `json:"lines"`
	Timestamp  int64  `json:"timestamp"`
}

// GameEndPayload is the single end-of-game notification.
type GameEndPayload struct {
	Winner   string  `json:"winner"`
	Loser    string  `json:"loser"`
	Duration int64   `json:"duration"` // millis
	Wager    float64 `json:"wager"`
}

// PlayerDisconnectedPayload announces a grace period has started.
type PlayerDisconnectedPayload struct {
	Identity    string `json:"identity"`
	GracePeriod int64  `json:"gracePeriod"` // millis
}

// PlayerReconnectedPayload announces a reconnection within grace.
type PlayerReconnectedPayload struct {
	Identity string `json:"identity"`
}

// PlayerDisconnectedFinalPayload announces the grace period expired.
type PlayerDisconnectedFinalPayload struct {
	Identity string `json:"identity"`
}
