package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/dependencies/clock"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/dependencies/random"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/metrics"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/protocol"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/registry"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/storage"
)

const (
	// RoomKeyLength is the length of generated private room keys
	RoomKeyLength = 6
	// RoomKeyAlphabet is the characters used in room keys (avoid confusing chars)
	RoomKeyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Config holds room manager timing settings.
type Config struct {
	// CountdownFrom is the starting count of the pre-battle countdown.
	CountdownFrom int
	// CountdownInterval is the delay between countdown ticks.
	CountdownInterval time.Duration
}

// DefaultConfig returns the 3-2-1, one-tick-per-second countdown.
func DefaultConfig() Config {
	return Config{
		CountdownFrom:     3,
		CountdownInterval: time.Second,
	}
}

// Manager owns the battle room lifecycle from creation through
// termination. It is the sole writer of BattleRoom state.
type Manager struct {
	storage  storage.Storage
	registry *registry.Registry
	clock    clock.Clock
	random   random.Random
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config

	locksMu sync.Mutex
	locks   map[model.RoomID]*roomLock
}

// roomLock serializes read-modify-write cycles against one room.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a room manager.
func NewManager(
	store storage.Storage,
	reg *registry.Registry,
	clk clock.Clock,
	rnd random.Random,
	m *metrics.Metrics,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	if cfg.CountdownFrom == 0 {
		cfg = DefaultConfig()
	}
	return &Manager{
		storage:  store,
		registry: reg,
		clock:    clk,
		random:   rnd,
		metrics:  m,
		logger:   logger.With(slog.String("component", "room")),
		cfg:      cfg,
		locks:    make(map[model.RoomID]*roomLock),
	}
}

// LockRoom acquires the per-room mutex. Every get-check-save cycle on a
// room's state runs under this lock so two concurrent handlers cannot
// both observe the same status and both act on it. The returned func
// releases the lock.
func (m *Manager) LockRoom(id model.RoomID) (unlock func()) {
	m.locksMu.Lock()
	l := m.locks[id]
	if l == nil {
		l = &roomLock{}
		m.locks[id] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.locksMu.Unlock()
	}
}

// CreateRoom creates a room with the given player as player1. Private
// rooms get a unique shareable key; generation retries on collision
// against currently-live keys.
func (m *Manager) CreateRoom(ctx context.Context, identity model.PlayerIdentity, displayName string, wager float64, isPrivate bool) (*model.BattleRoom, error) {
	if wager <= 0 {
		return nil, model.ErrInvalidWager
	}

	now := m.clock.Now()
	room := &model.BattleRoom{
		ID: model.RoomID(uuid.New().String()),
		Player1: model.RoomPlayer{
			Identity:    identity,
			DisplayName: displayName,
		},
		Wager:     wager,
		Status:    model.RoomStatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if isPrivate {
		key, err := m.generateRoomKey(ctx)
		if err != nil {
			return nil, err
		}
		room.Key = key
	}

	if err := m.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	if room.Key != "" {
		if err := m.storage.SaveRoomKey(ctx, room.Key, room.ID); err != nil {
			return nil, err
		}
	}
	if err := m.storage.SetPlayerRoom(ctx, identity, room.ID); err != nil {
		return nil, err
	}

	m.metrics.RoomOpened()
	m.logger.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("player", string(identity)),
		slog.Float64("wager", wager),
		slog.Bool("private", isPrivate))
	return room, nil
}

// CreateMatchedRoom materializes a room for a matchmaking pair. Both
// players are seated immediately; the ready-check still applies.
func (m *Manager) CreateMatchedRoom(ctx context.Context, p1, p2 model.RoomPlayer, wager float64) (*model.BattleRoom, error) {
	now := m.clock.Now()
	p1.Ready = false
	p2.Ready = false
	room := &model.BattleRoom{
		ID:        model.RoomID(uuid.New().String()),
		Player1:   p1,
		Player2:   &p2,
		Wager:     wager,
		Status:    model.RoomStatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	if err := m.storage.SetPlayerRoom(ctx, p1.Identity, room.ID); err != nil {
		return nil, err
	}
	if err := m.storage.SetPlayerRoom(ctx, p2.Identity, room.ID); err != nil {
		return nil, err
	}

	m.metrics.RoomOpened()
	m.logger.Info("matched room created",
		slog.String("room_id", string(room.ID)),
		slog.String("player1", string(p1.Identity)),
		slog.String("player2", string(p2.Identity)),
		slog.Float64("wager", wager))
	return room, nil
}

// JoinRoomByKey resolves a private room key and joins the room.
func (m *Manager) JoinRoomByKey(ctx context.Context, key model.RoomKey, identity model.PlayerIdentity, displayName string) (*model.BattleRoom, error) {
	roomID, err := m.storage.GetRoomIDByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return m.JoinRoom(ctx, roomID, identity, displayName)
}

// JoinRoom seats the player as player2. Re-joining as an existing
// occupant is idempotent and returns the room unchanged; a third
// identity joining a full room is rejected.
func (m *Manager) JoinRoom(ctx context.Context, roomID model.RoomID, identity model.PlayerIdentity, displayName string) (*model.BattleRoom, error) {
	unlock := m.LockRoom(roomID)
	defer unlock()

	room, err := m.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.Occupant(identity) != nil {
		return room, nil
	}
	if room.IsFull() {
		return nil, model.ErrRoomFull
	}

	room.Player2 = &model.RoomPlayer{
		Identity:    identity,
		DisplayName: displayName,
	}
	room.UpdatedAt = m.clock.Now()

	if err := m.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	if err := m.storage.SetPlayerRoom(ctx, identity, room.ID); err != nil {
		return nil, err
	}

	m.registry.Send(room.Player1.Identity, protocol.EventRoomPlayerJoined, protocol.PlayerJoinedPayload{
		Identity:    string(identity),
		DisplayName: displayName,
	})
	m.logger.Info("player joined room",
		slog.String("room_id", string(room.ID)),
		slog.String("player", string(identity)))
	return room, nil
}

// SetReady records a ready-state change and starts the countdown once
// both occupants are ready. Ready changes are ignored once the room has
// left the waiting state.
func (m *Manager) SetReady(ctx context.Context, roomID model.RoomID, identity model.PlayerIdentity, ready bool) error {
	unlock := m.LockRoom(roomID)
	defer unlock()

	room, err := m.storage.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	occupant := room.Occupant(identity)
	if occupant == nil {
		return model.ErrNotInRoom
	}
	if room.Status != model.RoomStatusWaiting {
		m.logger.Warn("ready change ignored for non-waiting room",
			slog.String("room_id", string(roomID)),
			slog.String("status", string(room.Status)))
		return nil
	}

	occupant.Ready = ready
	room.UpdatedAt = m.clock.Now()

	startCountdown := room.BothReady()
	if startCountdown {
		room.Status = model.RoomStatusCountdown
	}

	if err := m.storage.SaveRoom(ctx, room); err != nil {
		return err
	}

	m.registry.SendToAll(room.Identities(), protocol.EventRoomPlayerReady, protocol.PlayerReadyPayload{
		Identity: string(identity),
		Ready:    ready,
	})

	if startCountdown {
		go m.runCountdown(room.ID)
	}
	return nil
}

// runCountdown emits one countdown tick per interval, then flips the
// room to active with its start time and piece seed recorded.
func (m *Manager) runCountdown(roomID model.RoomID) {
	ctx := context.Background()

	for count := m.cfg.CountdownFrom; count > 0; count-- {
		room, err := m.storage.GetRoom(ctx, roomID)
		if err != nil || room.Status != model.RoomStatusCountdown {
			m.logger.Warn("countdown aborted", slog.String("room_id", string(roomID)))
			return
		}
		m.registry.SendToAll(room.Identities(), protocol.EventGameCountdown, protocol.CountdownPayload{
			Count: count,
		})
		time.Sleep(m.cfg.CountdownInterval)
	}

	unlock := m.LockRoom(roomID)
	defer unlock()

	room, err := m.storage.GetRoom(ctx, roomID)
	if err != nil || room.Status != model.RoomStatusCountdown {
		m.logger.Warn("countdown aborted before start", slog.String("room_id", string(roomID)))
		return
	}

	now := m.clock.Now()
	room.Status = model.RoomStatusActive
	room.StartTime = &now
	room.Seed = m.random.Int63()
	room.UpdatedAt = now

	if err := m.storage.SaveRoom(ctx, room); err != nil {
		m.logger.Error("failed to activate room",
			slog.String("room_id", string(roomID)),
			slog.Any("error", err))
		return
	}

	m.metrics.BattleStarted()
	m.registry.SendToAll(room.Identities(), protocol.EventGameStart, protocol.GameStartPayload{
		RoomID:    string(room.ID),
		StartTime: now.UnixMilli(),
		Seed:      room.Seed,
	})
	m.logger.Info("battle started", slog.String("room_id", string(room.ID)))
}

// LeaveRoom removes the player from the room. Before the battle starts
// (waiting or countdown) the room and its key are deleted outright and
// the opponent is told the room closed; deleting mid-countdown also
// aborts the countdown sequencer. During active play the room survives
// and the opponent is notified — departure from an active battle is the
// forfeit trigger handled by the caller. Returns the room as it was
// when the player left.
func (m *Manager) LeaveRoom(ctx context.Context, roomID model.RoomID, identity model.PlayerIdentity) (*model.BattleRoom, error) {
	unlock := m.LockRoom(roomID)
	defer unlock()

	room, err := m.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Occupant(identity) == nil {
		return nil, model.ErrNotInRoom
	}

	switch room.Status {
	case model.RoomStatusWaiting, model.RoomStatusCountdown:
		if opp := room.Opponent(identity); opp != nil {
			m.registry.Send(opp.Identity, protocol.EventRoomClosed, protocol.RoomClosedPayload{
				Reason: "opponent left before the game started",
			})
		}
		if err := m.DeleteRoom(ctx, roomID); err != nil {
			return nil, err
		}
	case model.RoomStatusActive:
		if opp := room.Opponent(identity); opp != nil {
			m.registry.Send(opp.Identity, protocol.EventRoomError, protocol.ErrorPayload{
				Message: "opponent left the room",
			})
		}
		_ = m.storage.DeletePlayerRoom(ctx, identity)
	default:
		_ = m.storage.DeletePlayerRoom(ctx, identity)
	}

	m.logger.Info("player left room",
		slog.String("room_id", string(roomID)),
		slog.String("player", string(identity)),
		slog.String("status", string(room.Status)))
	return room, nil
}

// GetRoom retrieves a room by id.
func (m *Manager) GetRoom(ctx context.Context, roomID model.RoomID) (*model.BattleRoom, error) {
	return m.storage.GetRoom(ctx, roomID)
}

// RoomForPlayer resolves the room a player currently occupies.
func (m *Manager) RoomForPlayer(ctx context.Context, identity model.PlayerIdentity) (*model.BattleRoom, error) {
	roomID, err := m.storage.GetPlayerRoom(ctx, identity)
	if err != nil {
		return nil, err
	}
	return m.storage.GetRoom(ctx, roomID)
}

// UpdateRoom persists room state, refreshing its TTL.
func (m *Manager) UpdateRoom(ctx context.Context, room *model.BattleRoom) error {
	room.UpdatedAt = m.clock.Now()
	return m.storage.SaveRoom(ctx, room)
}

// DeleteRoom removes a room, its private key mapping, and its player
// indexes.
func (m *Manager) DeleteRoom(ctx context.Context, roomID model.RoomID) error {
	room, err := m.storage.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if room.Key != "" {
		if err := m.storage.DeleteRoomKey(ctx, room.Key); err != nil {
			return err
		}
	}
	for _, id := range room.Identities() {
		_ = m.storage.DeletePlayerRoom(ctx, id)
	}
	if err := m.storage.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	m.metrics.RoomClosed()
	m.logger.Info("room deleted", slog.String("room_id", string(roomID)))
	return nil
}

// generateRoomKey produces a key guaranteed unique among live keys.
func (m *Manager) generateRoomKey(ctx context.Context) (model.RoomKey, error) {
	for {
		key := model.RoomKey(m.random.String(RoomKeyLength, RoomKeyAlphabet))
		exists, err := m.storage.RoomKeyExists(ctx, key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}
	}
}
