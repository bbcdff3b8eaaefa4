package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/protocol"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/registry"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/matchmaking"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/relay"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/room"
)

// Handler upgrades websocket connections and dispatches inbound events
// to the battle services. One goroutine per connection reads; a second
// drains the outbound queue.
type Handler struct {
	registry    *registry.Registry
	matchmaking *matchmaking.Service
	rooms       *room.Manager
	relay       *relay.Service
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewHandler creates a websocket handler. allowedOrigins of ["*"]
// accepts any origin.
func NewHandler(
	reg *registry.Registry,
	mm *matchmaking.Service,
	rooms *room.Manager,
	rel *relay.Service,
	allowedOrigins []string,
	logger *slog.Logger,
) *Handler {
	h := &Handler{
		registry:    reg,
		matchmaking: mm,
		rooms:       rooms,
		relay:       rel,
		logger:      logger.With(slog.String("component", "ws")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := newClient(conn, h.logger)
	client.configureRead()
	go client.writePump()

	identity, err := h.authenticate(client)
	if err != nil {
		_ = client.Send(protocol.EventAuthError, protocol.ErrorPayload{Message: err.Error()})
		_ = client.Close()
		return
	}

	h.readLoop(client, identity)
}

// authenticate requires the first inbound event to be a valid auth
// assertion. Anything else terminates the connection.
func (h *Handler) authenticate(client *Client) (model.PlayerIdentity, error) {
	env, err := client.readEnvelope()
	if err != nil {
		return "", errors.New("connection closed before authentication")
	}
	if env.Type != protocol.EventAuth {
		return "", errors.New("first event must be auth")
	}

	var p protocol.AuthPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return "", model.ErrInvalidIdentity
	}

	identity := model.PlayerIdentity(p.Identity)
	if err := h.registry.Authenticate(identity, p.DisplayName, client); err != nil {
		return "", err
	}

	_ = client.Send(protocol.EventAuthSuccess, protocol.AuthSuccessPayload{
		Identity:    p.Identity,
		DisplayName: p.DisplayName,
	})
	return identity, nil
}

// readLoop dispatches inbound events until the connection drops, then
// hands the identity to the registry's grace-period machinery.
func (h *Handler) readLoop(client *Client, identity model.PlayerIdentity) {
	for {
		env, err := client.readEnvelope()
		if err != nil {
			reason := "read error"
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = "client closed"
			}
			h.registry.Disconnect(identity, client, reason)
			_ = client.Close()
			return
		}
		h.registry.Touch(identity)
		h.dispatch(client, identity, env)
	}
}

func (h *Handler) dispatch(client *Client, identity model.PlayerIdentity, env *protocol.Envelope) {
	ctx := context.Background()

	switch env.Type {
	case protocol.EventAuth:
		// Re-auth on a live connection is a no-op.

	case protocol.EventMatchmakingJoin:
		var p protocol.MatchmakingJoinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(client, "malformed matchmaking join")
			return
		}
		displayName, _ := h.registry.Lookup(identity)
		if err := h.matchmaking.Join(ctx, identity, displayName, p.Wager); err != nil {
			h.sendError(client, err.Error())
		}

	case protocol.EventMatchmakingCancel:
		if _, err := h.matchmaking.Leave(ctx, identity); err != nil {
			h.sendError(client, err.Error())
			return
		}
		_ = client.Send(protocol.EventMatchmakingCancelled, struct{}{})

	case protocol.EventRoomCreate:
		var p protocol.RoomCreatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(client, "malformed room create")
			return
		}
		displayName, _ := h.registry.Lookup(identity)
		created, err := h.rooms.CreateRoom(ctx, identity, displayName, p.Wager, p.IsPrivate)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		_ = client.Send(protocol.EventRoomCreated, protocol.RoomCreatedPayload{
			Room: roomInfo(created),
		})

	case protocol.EventRoomJoin:
		var p protocol.RoomJoinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(client, "malformed room join")
			return
		}
		displayName, _ := h.registry.Lookup(identity)
		joined, err := h.rooms.JoinRoomByKey(ctx, model.RoomKey(p.RoomKey), identity, displayName)
		if err != nil {
			h.sendError(client, joinErrorMessage(err))
			return
		}
		_ = client.Send(protocol.EventRoomJoined, protocol.RoomJoinedPayload{
			Room: roomInfo(joined),
		})

	case protocol.EventRoomReady:
		var p protocol.RoomReadyPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(client, "malformed ready change")
			return
		}
		if err := h.rooms.SetReady(ctx, model.RoomID(p.RoomID), identity, p.Ready); err != nil {
			h.sendError(client, err.Error())
		}

	case protocol.EventRoomLeave:
		var p protocol.RoomLeavePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(client, "malformed room leave")
			return
		}
		left, err := h.rooms.LeaveRoom(ctx, model.RoomID(p.RoomID), identity)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		// Walking out of a live battle is a forfeit.
		if left.Status == model.RoomStatusActive {
			h.relay.OnGameOver(ctx, left.ID, identity)
		}

	case protocol.EventGameMove, protocol.EventGameRotate, protocol.EventGameDrop, protocol.EventGameStateUpdate:
		roomID, ok := extractRoomID(env.Payload)
		if !ok {
			h.sendError(client, "missing room id")
			return
		}
		h.relay.Relay(ctx, roomID, identity, env.Type, env.Payload)

	case protocol.EventGameLinesCleared:
		var p protocol.GameLinesClearedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(client, "malformed lines cleared")
			return
		}
		h.relay.OnLinesCleared(ctx, model.RoomID(p.RoomID), identity, p.Lines)

	case protocol.EventGameOver:
		var p protocol.GameOverPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(client, "malformed game over")
			return
		}
		h.relay.OnGameOver(ctx, model.RoomID(p.RoomID), identity)

	default:
		h.logger.Warn("unknown inbound event",
			slog.String("type", string(env.Type)),
			slog.String("identity", string(identity)))
		h.sendError(client, "unknown event type")
	}
}

func (h *Handler) sendError(client *Client, message string) {
	_ = client.Send(protocol.EventRoomError, protocol.ErrorPayload{Message: message})
}

// joinErrorMessage keeps key-lookup failures vague so keys cannot be
// probed for room state.
func joinErrorMessage(err error) string {
	if errors.Is(err, model.ErrRoomKeyNotFound) || errors.Is(err, model.ErrRoomNotFound) {
		return "room not found"
	}
	return err.Error()
}

// extractRoomID pulls the room id out of any inbound game payload.
func extractRoomID(payload json.RawMessage) (model.RoomID, bool) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.RoomID == "" {
		return "", false
	}
	return model.RoomID(p.RoomID), true
}

// roomInfo converts a room to its client-facing view.
func roomInfo(r *model.BattleRoom) protocol.RoomInfo {
	info := protocol.RoomInfo{
		RoomID:  string(r.ID),
		RoomKey: string(r.Key),
		Wager:   r.Wager,
		Status:  string(r.Status),
		Players: []protocol.PlayerInfo{
			{
				Identity:    string(r.Player1.Identity),
				DisplayName: r.Player1.DisplayName,
				Ready:       r.Player1.Ready,
			},
		},
	}
	if r.Player2 != nil {
		info.Players = append(info.Players, protocol.PlayerInfo{
			Identity:    string(r.Player2.Identity),
			DisplayName: r.Player2.DisplayName,
			Ready:       r.Player2.Ready,
		})
	}
	return info
}
