package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Global singleton for code paths that are not wired through dependency injection
var globalConfig *Config

// Config holds all environment backed configuration for conversation-api.
type Config struct {
	// HTTP Server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort     int           `env:"METRICS_PORT" envDefault:"9090"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// PostgreSQL
	DBPostgresqlWriteDSN string        `env:"DB_POSTGRESQL_WRITE_DSN,notEmpty"`
	DBPostgresqlRead1DSN string        `env:"DB_POSTGRESQL_READ1_DSN"`
	DBMaxIdleConns       int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns       int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnMaxLifetime    time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBTablePrefix        string        `env:"DB_TABLE_PREFIX" envDefault:"conversation_api."`

	// Redis / Sessions
	RedisURL   string        `env:"REDIS_URL"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Turn correlation
	CorrelationCacheSize int           `env:"CORRELATION_CACHE_SIZE" envDefault:"10000"`
	CorrelationTTL       time.Duration `env:"CORRELATION_TTL" envDefault:"10m"`
	ThreadLockTTL        time.Duration `env:"THREAD_LOCK_TTL" envDefault:"10s"`

	// Inference
	InferenceBaseURL string        `env:"INFERENCE_BASE_URL" envDefault:"http://localhost:8001/v1"`
	InferenceAPIKey  string        `env:"INFERENCE_API_KEY"`
	InferenceTimeout time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"120s"`
	DefaultProvider  string        `env:"DEFAULT_PROVIDER" envDefault:"jan"`
	DefaultModel     string        `env:"DEFAULT_MODEL" envDefault:"jan-v1-4b"`

	// Conversations
	TitleMaxLength   int `env:"TITLE_MAX_LENGTH" envDefault:"50"`
	ListDefaultLimit int `env:"LIST_DEFAULT_LIMIT" envDefault:"50"`

	// Observability / Logging
	OTELEnabled      bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"conversation-api"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"jan"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"json"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	// Internal
	EnvReloadedAt time.Time
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.EnvReloadedAt = time.Now()

	globalConfig = cfg

	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid METRICS_PORT: %d", c.MetricsPort)
	}
	if c.MetricsPort == c.HTTPPort {
		return errors.New("METRICS_PORT must differ from HTTP_PORT")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.CorrelationCacheSize <= 0 {
		return errors.New("CORRELATION_CACHE_SIZE must be positive")
	}
	if c.CorrelationTTL <= 0 {
		return errors.New("CORRELATION_TTL must be positive")
	}
	if c.TitleMaxLength < 4 {
		return errors.New("TITLE_MAX_LENGTH must be at least 4")
	}
	if c.ListDefaultLimit <= 0 {
		return errors.New("LIST_DEFAULT_LIMIT must be positive")
	}
	if c.InferenceBaseURL != "" {
		if _, err := url.ParseRequestURI(c.InferenceBaseURL); err != nil {
			return fmt.Errorf("invalid INFERENCE_BASE_URL: %w", err)
		}
	}
	if c.OTELEnabled && c.OTLPEndpoint == "" {
		return errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is set")
	}
	return nil
}

// UsesRedis reports whether sessions and thread locks are backed by Redis.
func (c *Config) UsesRedis() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}

// Addr returns the listen address of the API server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// MetricsAddr returns the listen address of the prometheus endpoint.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf(":%d", c.MetricsPort)
}

// GetGlobal returns the global config instance.
// Deprecated: Use dependency injection with Load() instead.
func GetGlobal() *Config {
	return globalConfig
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
