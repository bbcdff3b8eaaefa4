package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// RoomTTL bounds the total lifetime of a room record. Every room
	// write refreshes it, so only abandoned rooms expire.
	RoomTTL time.Duration

	// QueueEntryTTL bounds how long a stale queue entry can linger if
	// the pairing pass never removes it.
	QueueEntryTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:           "redis://localhost:6379",
		PoolSize:      10,
		MinIdleConns:  2,
		RoomTTL:       time.Hour,
		QueueEntryTTL: 10 * time.Minute,
	}
}
