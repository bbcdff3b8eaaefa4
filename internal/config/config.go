package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full server configuration, assembled from the
// environment with flag overrides applied on top.
type Config struct {
	ListenAddr     string
	StorageType    string
	RedisURL       string
	AllowedOrigins []string

	GracePeriod        time.Duration
	MatchmakingTimeout time.Duration
	PairingInterval    time.Duration
	WagerTolerance     float64

	CountdownFrom     int
	CountdownInterval time.Duration
	CleanupDelay      time.Duration
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		StorageType:        "memory",
		AllowedOrigins:     []string{"*"},
		GracePeriod:        10 * time.Second,
		MatchmakingTimeout: 60 * time.Second,
		PairingInterval:    2 * time.Second,
		WagerTolerance:     0.2,
		CountdownFrom:      3,
		CountdownInterval:  time.Second,
		CleanupDelay:       30 * time.Second,
	}
}

// FromEnv layers environment variables over the defaults.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		cfg.StorageType = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		cfg.AllowedOrigins = origins
	}

	var err error
	if cfg.GracePeriod, err = envDuration("GRACE_PERIOD", cfg.GracePeriod); err != nil {
		return cfg, err
	}
	if cfg.MatchmakingTimeout, err = envDuration("MATCHMAKING_TIMEOUT", cfg.MatchmakingTimeout); err != nil {
		return cfg, err
	}
	if cfg.PairingInterval, err = envDuration("PAIRING_INTERVAL", cfg.PairingInterval); err != nil {
		return cfg, err
	}
	if cfg.CountdownInterval, err = envDuration("COUNTDOWN_INTERVAL", cfg.CountdownInterval); err != nil {
		return cfg, err
	}
	if cfg.CleanupDelay, err = envDuration("CLEANUP_DELAY", cfg.CleanupDelay); err != nil {
		return cfg, err
	}
	if cfg.WagerTolerance, err = envFloat("WAGER_TOLERANCE", cfg.WagerTolerance); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
