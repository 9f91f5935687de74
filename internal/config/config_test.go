package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_POSTGRESQL_WRITE_DSN", "postgres://localhost/conversations")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, ":9090", cfg.MetricsAddr())
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "conversation_api.", cfg.DBTablePrefix)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10000, cfg.CorrelationCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.CorrelationTTL)
	assert.Equal(t, 10*time.Second, cfg.ThreadLockTTL)
	assert.Equal(t, 120*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, 50, cfg.TitleMaxLength)
	assert.Equal(t, 50, cfg.ListDefaultLimit)
	assert.True(t, cfg.AutoMigrate)
	assert.False(t, cfg.UsesRedis())
	assert.Same(t, cfg, GetGlobal())
	assert.False(t, cfg.EnvReloadedAt.IsZero())
}

func TestLoad_Normalizes(t *testing.T) {
	t.Setenv("DB_POSTGRESQL_WRITE_DSN", "postgres://localhost/conversations")
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("LOG_FORMAT", "Console")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing dsn", map[string]string{"DB_POSTGRESQL_WRITE_DSN": ""}},
		{"same ports", map[string]string{"HTTP_PORT": "9000", "METRICS_PORT": "9000"}},
		{"zero cache", map[string]string{"CORRELATION_CACHE_SIZE": "0"}},
		{"short titles", map[string]string{"TITLE_MAX_LENGTH": "3"}},
		{"bad inference url", map[string]string{"INFERENCE_BASE_URL": "not a url"}},
		{"otel without endpoint", map[string]string{"OTEL_ENABLED": "true"}},
		{"bad duration", map[string]string{"SESSION_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_POSTGRESQL_WRITE_DSN", "postgres://localhost/conversations")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
