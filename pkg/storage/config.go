package storage

import "time"

// Config holds storage backend configuration
type Config struct {
	// PostgreSQL
	PostgresURL         string
	PostgresReplicaURLs []string
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration
	PostgresMaxLifetime time.Duration
	PostgresMaxIdleTime time.Duration

	// Redis (optional, used for the distributed blacklist and rate limiting)
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		PostgresURL:         "postgres://localhost:5432/gatekeeper?sslmode=disable",
		PostgresMaxConns:    25,
		PostgresMinConns:    5,
		PostgresTimeout:     10 * time.Second,
		PostgresMaxLifetime: 1 * time.Hour,
		PostgresMaxIdleTime: 10 * time.Minute,
		RedisDB:             -1,
	}
}
