package matchmaking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/dependencies/clock"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/protocol"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/registry"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/room"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/wallet"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/storage"
)

// Config holds matchmaking tuning parameters.
type Config struct {
	// JoinTimeout is how long a player may wait before being removed
	// from the queue and notified.
	JoinTimeout time.Duration
	// PairingInterval is the period of the background pairing pass.
	PairingInterval time.Duration
	// WagerTolerance is the symmetric tolerance band as a fraction of
	// the larger wager.
	WagerTolerance float64
}

// DefaultConfig returns the standard matchmaking parameters.
func DefaultConfig() Config {
	return Config{
		JoinTimeout:     60 * time.Second,
		PairingInterval: 2 * time.Second,
		WagerTolerance:  0.2,
	}
}

// Service holds the wager-ordered matchmaking queue and runs the
// periodic pairing pass. It is the sole writer of queue entries.
type Service struct {
	storage  storage.Storage
	registry *registry.Registry
	rooms    *room.Manager
	wallet   wallet.Service
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config

	mu       sync.Mutex
	timeouts map[model.PlayerIdentity]*time.Timer
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a matchmaking service.
func New(
	store storage.Storage,
	reg *registry.Registry,
	rooms *room.Manager,
	w wallet.Service,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.JoinTimeout == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		storage:  store,
		registry: reg,
		rooms:    rooms,
		wallet:   w,
		clock:    clk,
		logger:   logger.With(slog.String("component", "matchmaking")),
		cfg:      cfg,
		timeouts: make(map[model.PlayerIdentity]*time.Timer),
		stop:     make(chan struct{}),
	}
}

// Start launches the background pairing pass.
func (s *Service) Start() {
	go func() {
		ticker := time.NewTicker(s.cfg.PairingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunPairingPass(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
	s.logger.Info("pairing pass started",
		slog.Duration("interval", s.cfg.PairingInterval))
}

// Stop halts the background pairing pass.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Join enters the player into the queue and arms their wait timeout.
// A player already queued is a logged no-op.
func (s *Service) Join(ctx context.Context, identity model.PlayerIdentity, displayName string, wager float64) error {
	if wager <= 0 {
		return model.ErrInvalidWager
	}

	queued, err := s.storage.QueueContains(ctx, identity)
	if err != nil {
		return err
	}
	if queued {
		s.logger.Info("join ignored, player already queued",
			slog.String("identity", string(identity)))
		return nil
	}

	entry := &model.QueueEntry{
		Identity:    identity,
		DisplayName: displayName,
		Wager:       wager,
		JoinedAt:    s.clock.Now(),
	}
	if err := s.storage.QueueAdd(ctx, entry); err != nil {
		return err
	}

	s.mu.Lock()
	s.timeouts[identity] = time.AfterFunc(s.cfg.JoinTimeout, func() {
		s.expire(identity)
	})
	s.mu.Unlock()

	s.logger.Info("player queued",
		slog.String("identity", string(identity)),
		slog.Float64("wager", wager))
	return nil
}

// Leave removes the player from the queue. Returns whether an entry
// was actually removed.
func (s *Service) Leave(ctx context.Context, identity model.PlayerIdentity) (bool, error) {
	removed, err := s.storage.QueueRemove(ctx, identity)
	if err != nil {
		return false, err
	}
	s.cancelTimeout(identity)
	if removed {
		s.logger.Info("player left queue", slog.String("identity", string(identity)))
	}
	return removed, nil
}

// QueueSize reports the number of waiting players.
func (s *Service) QueueSize(ctx context.Context) (int, error) {
	return s.storage.QueueSize(ctx)
}

// expire fires when a player's wait timeout elapses. Guarded no-op if
// the entry was already removed by a match or a manual leave.
func (s *Service) expire(identity model.PlayerIdentity) {
	ctx := context.Background()
	removed, err := s.storage.QueueRemove(ctx, identity)
	if err != nil {
		s.logger.Error("queue timeout removal failed",
			slog.String("identity", string(identity)),
			slog.Any("error", err))
		return
	}
	s.cancelTimeout(identity)
	if !removed {
		return
	}
	s.logger.Info("player timed out of queue", slog.String("identity", string(identity)))
	s.registry.Send(identity, protocol.EventMatchmakingTimeout, struct{}{})
}

// cancelTimeout stops and forgets the player's wait timer, if any.
func (s *Service) cancelTimeout(identity model.PlayerIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timeouts[identity]; ok {
		timer.Stop()
		delete(s.timeouts, identity)
	}
}

// RunPairingPass scans the queue in wager order and matches the first
// pair whose wagers fall within the tolerance band. At most one pair is
// created per pass; remaining entries wait for the next tick.
func (s *Service) RunPairingPass(ctx context.Context) {
	entries, err := s.storage.QueueEntries(ctx)
	if err != nil {
		s.logger.Error("pairing pass scan failed", slog.Any("error", err))
		return
	}
	if len(entries) < 2 {
		return
	}

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if !WagersCompatible(entries[i].Wager, entries[j].Wager, s.cfg.WagerTolerance) {
				continue
			}
			s.match(ctx, entries[i], entries[j])
			return
		}
	}
}

// WagersCompatible reports whether two wagers fall within the symmetric
// tolerance band of the larger wager.
func WagersCompatible(w1, w2, tolerance float64) bool {
	larger := w1
	if w2 > larger {
		larger = w2
	}
	diff := w1 - w2
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance*larger
}

// match removes both entries, cancels their timers, materializes a
// room at the larger wager, and notifies both players.
func (s *Service) match(ctx context.Context, e1, e2 *model.QueueEntry) {
	removed1, err := s.storage.QueueRemove(ctx, e1.Identity)
	if err != nil || !removed1 {
		return
	}
	removed2, err := s.storage.QueueRemove(ctx, e2.Identity)
	if err != nil || !removed2 {
		// The second entry vanished mid-pass; put the first back.
		_ = s.storage.QueueAdd(ctx, e1)
		return
	}
	s.cancelTimeout(e1.Identity)
	s.cancelTimeout(e2.Identity)

	wager := e1.Wager
	if e2.Wager > wager {
		wager = e2.Wager
	}

	p1 := model.RoomPlayer{Identity: e1.Identity, DisplayName: s.resolveName(ctx, e1)}
	p2 := model.RoomPlayer{Identity: e2.Identity, DisplayName: s.resolveName(ctx, e2)}

	matched, err := s.rooms.CreateMatchedRoom(ctx, p1, p2, wager)
	if err != nil {
		s.logger.Error("failed to materialize matched room",
			slog.String("player1", string(e1.Identity)),
			slog.String("player2", string(e2.Identity)),
			slog.Any("error", err))
		return
	}

	s.registry.Send(e1.Identity, protocol.EventMatchmakingFound, protocol.MatchFoundPayload{
		RoomID:       string(matched.ID),
		Opponent:     string(p2.Identity),
		OpponentName: p2.DisplayName,
		Wager:        wager,
	})
	s.registry.Send(e2.Identity, protocol.EventMatchmakingFound, protocol.MatchFoundPayload{
		RoomID:       string(matched.ID),
		Opponent:     string(p1.Identity),
		OpponentName: p1.DisplayName,
		Wager:        wager,
	})

	s.logger.Info("players matched",
		slog.String("room_id", string(matched.ID)),
		slog.String("player1", string(e1.Identity)),
		slog.String("player2", string(e2.Identity)),
		slog.Float64("wager", wager))
}

// resolveName prefers the on-chain display name, falling back to the
// name the player supplied at authentication.
func (s *Service) resolveName(ctx context.Context, entry *model.QueueEntry) string {
	name, err := s.wallet.DisplayName(ctx, entry.Identity)
	if err != nil {
		if !errors.Is(err, model.ErrNameUnavailable) {
			s.logger.Warn("display name lookup failed",
				slog.String("identity", string(entry.Identity)),
				slog.Any("error", err))
		}
		return entry.DisplayName
	}
	return name
}
