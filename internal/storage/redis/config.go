package redis

import (
	"github.com/mcoot/teamroster/internal/storage"
)

// Config holds Redis connection settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// Startup controls how long New waits for the server to answer PING
	Startup storage.StartupRetry
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		Startup:      storage.DefaultStartupRetry(),
	}
}
