// Package config loads application configuration from BOOKSTORE_
// environment variables with sensible local-development defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/giabaovo/resola-code-challenge/pkg/observability"
	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Storage       storage.Config
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds token lifecycle configuration
type AuthConfig struct {
	// TokenTTL bounds token lifetime; zero disables expiry
	TokenTTL time.Duration
	// SweepSchedule is the cron expression for the expired-token sweeper
	SweepSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth:          loadAuthConfig(),
		Storage:       loadStorageConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BOOKSTORE_HOST", "0.0.0.0"),
		Port:            getEnv("BOOKSTORE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BOOKSTORE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BOOKSTORE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BOOKSTORE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BOOKSTORE_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("BOOKSTORE_MAX_BODY_BYTES", 1<<20),
		HealthPort:      getEnv("BOOKSTORE_HEALTH_PORT", "9090"),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		TokenTTL:      getEnvDuration("BOOKSTORE_TOKEN_TTL", 720*time.Hour),
		SweepSchedule: getEnv("BOOKSTORE_TOKEN_SWEEP_SCHEDULE", "@every 1h"),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if storageType := getEnv("BOOKSTORE_STORAGE_TYPE", ""); storageType != "" {
		cfg.Type = storageType
	}

	if pgURL := getEnv("BOOKSTORE_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("BOOKSTORE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("BOOKSTORE_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("BOOKSTORE_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	if cacheEnabled := getEnv("BOOKSTORE_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.CacheEnabled = strings.ToLower(cacheEnabled) == "true"
	}
	if redisURL := getEnv("BOOKSTORE_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("BOOKSTORE_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("BOOKSTORE_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("BOOKSTORE_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("BOOKSTORE_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}
	if cacheTTL := getEnvDuration("BOOKSTORE_CACHE_TTL", 0); cacheTTL > 0 {
		cfg.CacheTTL = cacheTTL
	}

	return cfg
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("BOOKSTORE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("BOOKSTORE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("BOOKSTORE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("BOOKSTORE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("BOOKSTORE_OTEL_SERVICE_NAME", "bookstore-api"),
		OTelServiceVersion: getEnv("BOOKSTORE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("BOOKSTORE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "memory":
		// No further requirements; cache settings are ignored.
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
		if c.Storage.CacheEnabled && c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required when the cache is enabled")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory or postgres)", c.Storage.Type)
	}

	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("token TTL must not be negative")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
