package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/dependencies/clock"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/metrics"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/protocol"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/registry"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/room"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/wallet"
)

// garbageLines maps a line clear to the penalty lines sent to the
// opponent. Clears outside 1-4 send nothing.
var garbageLines = map[int]int{
	1: 0,
	2: 1,
	3: 2,
	4: 4,
}

// GarbageForClear returns the garbage-line count for a line clear.
func GarbageForClear(lines int) int {
	return garbageLines[lines]
}

// relayTargets maps inbound game events to their opponent-facing kinds.
var relayTargets = map[protocol.EventType]protocol.EventType{
	protocol.EventGameMove:        protocol.EventOpponentMove,
	protocol.EventGameRotate:      protocol.EventOpponentRotate,
	protocol.EventGameDrop:        protocol.EventOpponentDrop,
	protocol.EventGameStateUpdate: protocol.EventOpponentState,
}

// Config holds relay timing settings.
type Config struct {
	// CleanupDelay is how long an ended room lingers so both clients
	// can consume the end-of-game event before the room vanishes.
	CleanupDelay time.Duration
}

// DefaultConfig returns the standard relay parameters.
func DefaultConfig() Config {
	return Config{
		CleanupDelay: 30 * time.Second,
	}
}

// Service forwards per-tick game events between the two occupants of
// an active room and resolves the battle outcome.
type Service struct {
	rooms    *room.Manager
	registry *registry.Registry
	wallet   wallet.Service
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
}

// New creates a state relay.
func New(
	rooms *room.Manager,
	reg *registry.Registry,
	w wallet.Service,
	clk clock.Clock,
	m *metrics.Metrics,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.CleanupDelay == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		rooms:    rooms,
		registry: reg,
		wallet:   w,
		clock:    clk,
		metrics:  m,
		logger:   logger.With(slog.String("component", "relay")),
		cfg:      cfg,
	}
}

// activeRoom fetches the room and guards against stale client events
// arriving after a room transition. Returns nil when the event should
// be dropped.
func (s *Service) activeRoom(ctx context.Context, roomID model.RoomID, from model.PlayerIdentity, event string) *model.BattleRoom {
	battle, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		s.logger.Warn("event for unknown room dropped",
			slog.String("event", event),
			slog.String("room_id", string(roomID)),
			slog.String("from", string(from)))
		return nil
	}
	if battle.Status != model.RoomStatusActive {
		s.logger.Warn("event for non-active room dropped",
			slog.String("event", event),
			slog.String("room_id", string(roomID)),
			slog.String("status", string(battle.Status)))
		return nil
	}
	return battle
}

// Relay forwards a movement, rotation, drop, or full-state-snapshot
// event verbatim to the sender's opponent, stamped with the server
// receipt time. At-most-once, no buffering.
func (s *Service) Relay(ctx context.Context, roomID model.RoomID, from model.PlayerIdentity, kind protocol.EventType, payload json.RawMessage) {
	target, ok := relayTargets[kind]
	if !ok {
		s.logger.Warn("unrelayable event kind", slog.String("kind", string(kind)))
		return
	}

	battle := s.activeRoom(ctx, roomID, from, string(kind))
	if battle == nil {
		return
	}
	opp := battle.Opponent(from)
	if opp == nil {
		s.logger.Warn("relay from non-occupant dropped",
			slog.String("room_id", string(roomID)),
			slog.String("from", string(from)))
		return
	}

	now := s.clock.Now().UnixMilli()
	switch kind {
	case protocol.EventGameStateUpdate:
		var p protocol.GameStatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			s.logger.Warn("malformed state payload dropped", slog.Any("error", err))
			return
		}
		s.registry.Send(opp.Identity, target, protocol.OpponentStatePayload{
			State:     p.State,
			Timestamp: now,
		})
	case protocol.EventGameMove:
		var p protocol.GameMovePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			s.logger.Warn("malformed action payload dropped", slog.Any("error", err))
			return
		}
		s.registry.Send(opp.Identity, target, protocol.OpponentActionPayload{
			Direction: p.Direction,
			Timestamp: now,
		})
	case protocol.EventGameRotate:
		var p protocol.GameRotatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			s.logger.Warn("malformed action payload dropped", slog.Any("error", err))
			return
		}
		s.registry.Send(opp.Identity, target, protocol.OpponentActionPayload{
			Direction: p.Direction,
			Timestamp: now,
		})
	default: // drop
		s.registry.Send(opp.Identity, target, protocol.OpponentActionPayload{
			Timestamp: now,
		})
	}
}

// OnLinesCleared converts a line clear into garbage for the opponent.
func (s *Service) OnLinesCleared(ctx context.Context, roomID model.RoomID, from model.PlayerIdentity, lines int) {
	battle := s.activeRoom(ctx, roomID, from, "lines_cleared")
	if battle == nil {
		return
	}
	opp := battle.Opponent(from)
	if opp == nil {
		return
	}

	garbage := GarbageForClear(lines)
	if garbage == 0 {
		return
	}

	s.registry.Send(opp.Identity, protocol.EventGarbageIncoming, protocol.GarbageIncomingPayload{
		FromPlayer: string(from),
		ToPlayer:   string(opp.Identity),
		Lines:      garbage,
		Timestamp:  s.clock.Now().UnixMilli(),
	})
}

// OnGameOver resolves the battle: the reporting player loses, the other
// occupant wins. Exactly one end-of-game notification goes to both
// occupants; the wager transfer is attempted and its failure never
// reverses the decided outcome. Room deletion is deferred so clients
// can consume the end event.
func (s *Service) OnGameOver(ctx context.Context, roomID model.RoomID, loser model.PlayerIdentity) {
	// Outcome resolution is serialized per room: two simultaneous
	// game-over reports must not both observe an active room.
	unlock := s.rooms.LockRoom(roomID)
	defer unlock()

	battle := s.activeRoom(ctx, roomID, loser, "game_over")
	if battle == nil {
		return
	}
	winner := battle.Opponent(loser)
	if winner == nil {
		s.logger.Warn("game over from non-occupant dropped",
			slog.String("room_id", string(roomID)),
			slog.String("from", string(loser)))
		return
	}

	now := s.clock.Now()
	var duration time.Duration
	if battle.StartTime != nil {
		duration = now.Sub(*battle.StartTime)
	}

	battle.Status = model.RoomStatusEnded
	if err := s.rooms.UpdateRoom(ctx, battle); err != nil {
		s.logger.Error("failed to persist ended room",
			slog.String("room_id", string(roomID)),
			slog.Any("error", err))
		return
	}

	s.metrics.BattleCompleted()
	s.registry.SendToAll(battle.Identities(), protocol.EventGameEnd, protocol.GameEndPayload{
		Winner:   string(winner.Identity),
		Loser:    string(loser),
		Duration: duration.Milliseconds(),
		Wager:    battle.Wager,
	})
	s.logger.Info("battle ended",
		slog.String("room_id", string(roomID)),
		slog.String("winner", string(winner.Identity)),
		slog.String("loser", string(loser)),
		slog.Duration("duration", duration))

	if err := s.wallet.TransferWager(ctx, winner.Identity, loser, battle.Wager); err != nil {
		s.logger.Error("wager transfer failed",
			slog.String("room_id", string(roomID)),
			slog.Any("error", err))
		s.registry.SendToAll(battle.Identities(), protocol.EventRoomError, protocol.ErrorPayload{
			Message: "wager transfer failed; the outcome stands",
		})
	}

	roomIdentities := battle.Identities()
	time.AfterFunc(s.cfg.CleanupDelay, func() {
		cleanupCtx := context.Background()
		if err := s.rooms.DeleteRoom(cleanupCtx, roomID); err != nil {
			s.logger.Warn("deferred room cleanup failed",
				slog.String("room_id", string(roomID)),
				slog.Any("error", err))
			return
		}
		s.registry.SendToAll(roomIdentities, protocol.EventRoomClosed, protocol.RoomClosedPayload{
			Reason: "battle complete",
		})
	})
}

// HandleDisconnect announces a grace-period start to the player's
// opponent. Registered as a registry listener.
func (s *Service) HandleDisconnect(identity model.PlayerIdentity) {
	ctx := context.Background()
	battle, err := s.rooms.RoomForPlayer(ctx, identity)
	if err != nil {
		return
	}
	if opp := battle.Opponent(identity); opp != nil {
		s.registry.Send(opp.Identity, protocol.EventPlayerDisconnected, protocol.PlayerDisconnectedPayload{
			Identity:    string(identity),
			GracePeriod: s.registry.GracePeriod().Milliseconds(),
		})
	}
}

// HandleReconnect announces a reconnection within the grace period.
func (s *Service) HandleReconnect(identity model.PlayerIdentity) {
	ctx := context.Background()
	battle, err := s.rooms.RoomForPlayer(ctx, identity)
	if err != nil {
		return
	}
	if opp := battle.Opponent(identity); opp != nil {
		s.registry.Send(opp.Identity, protocol.EventPlayerReconnected, protocol.PlayerReconnectedPayload{
			Identity: string(identity),
		})
	}
}

// HandleFinalDisconnect treats a finalized disconnection of an active
// room's occupant as that occupant forfeiting.
func (s *Service) HandleFinalDisconnect(identity model.PlayerIdentity) {
	ctx := context.Background()
	battle, err := s.rooms.RoomForPlayer(ctx, identity)
	if err != nil {
		return
	}
	if opp := battle.Opponent(identity); opp != nil {
		s.registry.Send(opp.Identity, protocol.EventPlayerDisconnFinal, protocol.PlayerDisconnectedFinalPayload{
			Identity: string(identity),
		})
	}
	if battle.Status == model.RoomStatusActive {
		s.OnGameOver(ctx, battle.ID, identity)
	}
}
