package storage

import "time"

// Config holds storage backend configuration
type Config struct {
	// Backend type: "memory" or "postgres"
	Type string

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// Redis cache config (optional)
	CacheEnabled    bool
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
	CacheTTL        time.Duration
}

// DefaultConfig returns sensible defaults for local development
func DefaultConfig() Config {
	return Config{
		Type:             "memory",
		PostgresMaxConns: 25,
		PostgresMinConns: 5,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		CacheTTL:         5 * time.Minute,
	}
}
