package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_HOST", "SERVER_PORT", "APP_ENV",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"REDIS_HOST", "REDIS_PORT",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_TIMEOUT_SECONDS",
		"SEARCH_SEMANTIC_THRESHOLD", "SEARCH_VECTOR_CACHE_SIZE",
		"ANALYTICS_RETENTION_DAYS", "OTEL_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "artisan_marketplace", cfg.Database.Database)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 1536, cfg.OpenAI.EmbeddingDimensions)
	assert.Equal(t, 10, cfg.OpenAI.TimeoutSeconds)

	assert.Equal(t, 0.3, cfg.Search.SemanticThreshold)
	assert.Equal(t, 4096, cfg.Search.VectorCacheSize)
	assert.Equal(t, 20, cfg.Search.DefaultPageSize)
	assert.Equal(t, 100, cfg.Search.MaxPageSize)

	assert.Equal(t, 90, cfg.Analytics.RetentionDays)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("SEARCH_SEMANTIC_THRESHOLD", "0.45")
	t.Setenv("SEARCH_MAX_PAGE_SIZE", "50")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 0.45, cfg.Search.SemanticThreshold)
	assert.Equal(t, 50, cfg.Search.MaxPageSize)
	assert.True(t, cfg.OTEL.Enabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("SEARCH_SEMANTIC_THRESHOLD", "loose")
	t.Setenv("OTEL_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.3, cfg.Search.SemanticThreshold)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "artisan_marketplace",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=artisan_marketplace sslmode=disable",
		cfg.DatabaseDSN(),
	)
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}
