package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "@every 1h", cfg.Auth.SweepSchedule)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BOOKSTORE_PORT", "8888")
	t.Setenv("BOOKSTORE_STORAGE_TYPE", "postgres")
	t.Setenv("BOOKSTORE_POSTGRES_URL", "postgres://localhost/bookstore")
	t.Setenv("BOOKSTORE_CACHE_ENABLED", "true")
	t.Setenv("BOOKSTORE_REDIS_URL", "redis://localhost:6379")
	t.Setenv("BOOKSTORE_TOKEN_TTL", "24h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.True(t, cfg.Storage.CacheEnabled)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestValidate(t *testing.T) {
	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("BOOKSTORE_STORAGE_TYPE", "postgres")

		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("cache without redis url", func(t *testing.T) {
		t.Setenv("BOOKSTORE_STORAGE_TYPE", "postgres")
		t.Setenv("BOOKSTORE_POSTGRES_URL", "postgres://localhost/bookstore")
		t.Setenv("BOOKSTORE_CACHE_ENABLED", "true")

		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("unknown storage type", func(t *testing.T) {
		t.Setenv("BOOKSTORE_STORAGE_TYPE", "cassandra")

		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("port collision", func(t *testing.T) {
		t.Setenv("BOOKSTORE_PORT", "9090")

		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
