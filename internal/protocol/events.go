package protocol

import "encoding/json"

// EventType identifies the kind of event sent over the wire.
type EventType string

// Client -> server events
const (
	EventAuth              EventType = "auth"
	EventMatchmakingJoin   EventType = "matchmaking:join"
	EventMatchmakingCancel EventType = "matchmaking:cancel"
	EventRoomCreate        EventType = "room:create"
	EventRoomJoin          EventType = "room:join"
	EventRoomReady         EventType = "room:ready"
	EventRoomLeave         EventType = "room:leave"
	EventGameMove          EventType = "game:move"
	EventGameRotate        EventType = "game:rotate"
	EventGameDrop          EventType = "game:drop"
	EventGameStateUpdate   EventType = "game:state_update"
	EventGameLinesCleared  EventType = "game:lines_cleared"
	EventGameOver          EventType = "game:over"
)

// Server -> client events
const (
	EventAuthSuccess          EventType = "auth:success"
	EventAuthError            EventType = "auth:error"
	EventMatchmakingFound     EventType = "matchmaking:found"
	EventMatchmakingTimeout   EventType = "matchmaking:timeout"
	EventMatchmakingCancelled EventType = "matchmaking:cancelled"
	EventRoomCreated          EventType = "room:created"
	EventRoomJoined           EventType = "room:joined"
	EventRoomPlayerJoined     EventType = "room:player_joined"
	EventRoomPlayerReady      EventType = "room:player_ready"
	EventRoomError            EventType = "room:error"
	EventRoomClosed           EventType = "room:closed"
	EventGameCountdown        EventType = "game:countdown"
	EventGameStart            EventType = "game:start"
	EventOpponentMove         EventType = "game:opponent_move"
	EventOpponentRotate       EventType = "game:opponent_rotate"
	EventOpponentDrop         EventType = "game:opponent_drop"
	EventOpponentState        EventType = "game:opponent_state"
	EventGarbageIncoming      EventType = "game:garbage_incoming"
	EventGameEnd              EventType = "game:end"
	EventPlayerDisconnected   EventType = "player:disconnected"
	EventPlayerReconnected    EventType = "player:reconnected"
	EventPlayerDisconnFinal   EventType = "player:disconnected:final"
)

// Envelope is the top-level wire format for all events.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
