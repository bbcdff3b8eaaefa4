package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/api"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/config"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/factory"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/ws"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		listenAddr  string
		storageType string
		redisURL    string
	)

	rootCmd := &cobra.Command{
		Use:   "tetrichain-server",
		Short: "Real-time wagered block-battle server",
		Long: `tetrichain-server runs the websocket battle server: player
authentication, wager-based matchmaking, room lifecycle, and in-game
state relay between paired opponents.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			if storageType != "" {
				cfg.StorageType = storageType
			}
			if redisURL != "" {
				cfg.RedisURL = redisURL
			}
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (env: LISTEN_ADDR)")
	rootCmd.Flags().StringVar(&storageType, "storage", "", "Storage backend: memory, redis (env: STORAGE_TYPE)")
	rootCmd.Flags().StringVar(&redisURL, "redis-url", "", "Redis connection URL (env: REDIS_URL)")

	return rootCmd
}

func run(cfg config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := factory.New(cfg, logger)

	app.Matchmaking.Start()
	defer app.Matchmaking.Stop()

	wsHandler := ws.NewHandler(
		app.Registry,
		app.Matchmaking,
		app.Rooms,
		app.Relay,
		cfg.AllowedOrigins,
		logger,
	)

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		WSHandler:   wsHandler,
		Registry:    app.Registry,
		Matchmaking: app.Matchmaking,
		Metrics:     app.Metrics,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.ListenAddr
	server := api.NewServer(router, serverCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	}
}
