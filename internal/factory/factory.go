package factory

import (
	"context"
	"io"
	"log/slog"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/config"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/dependencies/clock"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/dependencies/random"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/metrics"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/registry"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/matchmaking"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/relay"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/room"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/wallet"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/storage"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/storage/memory"
	redisstorage "github.com/StrawberryMilk21/tetrichain-sub001/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	Storage storage.Storage

	Clock  clock.Clock
	Random random.Random

	Registry    *registry.Registry
	Metrics     *metrics.Metrics
	Wallet      wallet.Service
	Rooms       *room.Manager
	Matchmaking *matchmaking.Service
	Relay       *relay.Service
}

// New creates a fully wired application. A Redis backend that cannot be
// reached falls back to in-memory storage with a warning rather than
// refusing to start.
func New(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	switch cfg.StorageType {
	case StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			logger.Warn("redis unavailable, falling back to in-memory storage",
				slog.Any("error", err))
			store = memory.New()
		} else {
			store = redisStore
		}
	default:
		store = memory.New()
	}

	clk := clock.New()
	rnd := random.New()

	return NewWithDependencies(cfg, store, clk, rnd, wallet.NewNoop(logger), logger)
}

// NewWithDependencies wires an App around the given collaborators.
// Tests inject mock clocks, queued randoms, and fake wallets here.
func NewWithDependencies(
	cfg config.Config,
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	w wallet.Service,
	logger *slog.Logger,
) *App {
	m := metrics.New()
	reg := registry.New(cfg.GracePeriod, clk, logger)

	rooms := room.NewManager(store, reg, clk, rnd, m, room.Config{
		CountdownFrom:     cfg.CountdownFrom,
		CountdownInterval: cfg.CountdownInterval,
	}, logger)

	mm := matchmaking.New(store, reg, rooms, w, clk, matchmaking.Config{
		JoinTimeout:     cfg.MatchmakingTimeout,
		PairingInterval: cfg.PairingInterval,
		WagerTolerance:  cfg.WagerTolerance,
	}, logger)

	rel := relay.New(rooms, reg, w, clk, m, relay.Config{
		CleanupDelay: cfg.CleanupDelay,
	}, logger)

	// Grace-period transitions fan out to the room opponent, and a
	// finalized disconnect also clears any queue entry.
	reg.OnDisconnect(rel.HandleDisconnect)
	reg.OnReconnect(rel.HandleReconnect)
	reg.OnFinalDisconnect(func(identity model.PlayerIdentity) {
		if _, err := mm.Leave(context.Background(), identity); err != nil {
			logger.Warn("queue cleanup on final disconnect failed",
				slog.String("identity", string(identity)),
				slog.Any("error", err))
		}
		rel.HandleFinalDisconnect(identity)
	})

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Registry:    reg,
		Metrics:     m,
		Wallet:      w,
		Rooms:       rooms,
		Matchmaking: mm,
		Relay:       rel,
	}
}
