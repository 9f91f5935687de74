package infrastructure

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"jan-server/services/conversation-api/internal/config"
	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/resolver"
	"jan-server/services/conversation-api/internal/infrastructure/cache"
	"jan-server/services/conversation-api/internal/infrastructure/database"
	"jan-server/services/conversation-api/internal/infrastructure/database/repository"
	"jan-server/services/conversation-api/internal/infrastructure/inference"
	"jan-server/services/conversation-api/internal/infrastructure/lock"
	"jan-server/services/conversation-api/internal/infrastructure/logger"
	"jan-server/services/conversation-api/internal/infrastructure/metrics"
	"jan-server/services/conversation-api/internal/infrastructure/sessionstore"
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideLogger builds the service logger from LOG_LEVEL and LOG_FORMAT.
func ProvideLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat)
}

// ProvideDatabase provides a database connection
func ProvideDatabase(cfg *config.Config, log zerolog.Logger) (*gorm.DB, func(), error) {
	db, err := database.Connect(database.Config{
		WriteDSN:    cfg.DBPostgresqlWriteDSN,
		Read1DSN:    cfg.DBPostgresqlRead1DSN,
		TablePrefix: cfg.DBTablePrefix,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}

	// Run migrations if AUTO_MIGRATE is enabled
	if cfg.AutoMigrate {
		log.Info().Msg("Running database migrations...")
		if err := database.AutoMigrate(db, cfg.DBTablePrefix); err != nil {
			log.Error().Err(err).Msg("Failed to run database migrations")
			return nil, nil, err
		}
		log.Info().Msg("Database migrations completed successfully")
	}

	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// ProvideRedisCache connects to Redis when REDIS_URL is set. A nil cache selects the
// in-process session store and thread locker.
func ProvideRedisCache(cfg *config.Config, log zerolog.Logger) (*cache.RedisCache, func(), error) {
	if !cfg.UsesRedis() {
		log.Info().Msg("REDIS_URL not set, using in-memory sessions and local thread locks")
		return nil, func() {}, nil
	}
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("Redis session store and thread locks enabled")
	return redisCache, func() { _ = redisCache.Close() }, nil
}

// ProvideSessionStore picks the session backend.
func ProvideSessionStore(cfg *config.Config, redisCache *cache.RedisCache) resolver.SessionStore {
	if redisCache == nil {
		return sessionstore.NewMemoryStore(cfg.SessionTTL)
	}
	return sessionstore.NewRedisStore(redisCache, cfg.SessionTTL)
}

// ProvideThreadLocker picks the per-thread lock backend.
func ProvideThreadLocker(cfg *config.Config, redisCache *cache.RedisCache) conversation.ThreadLocker {
	if redisCache == nil {
		return lock.NewLocalLocker()
	}
	return lock.NewRedisLocker(redisCache, cfg.ThreadLockTTL)
}

// ProvideCorrelationCache sizes the pending turn cache.
func ProvideCorrelationCache(cfg *config.Config) (*resolver.CorrelationCache, error) {
	return resolver.NewCorrelationCache(cfg.CorrelationCacheSize, cfg.CorrelationTTL)
}

// ProvideInferenceClient points the chat client at the configured provider.
func ProvideInferenceClient(cfg *config.Config) *inference.Client {
	return inference.NewClient(inference.Config{
		BaseURL:  cfg.InferenceBaseURL,
		APIKey:   cfg.InferenceAPIKey,
		Timeout:  cfg.InferenceTimeout,
		Provider: cfg.DefaultProvider,
	})
}

// ProvideTurnObserver reports resolver events to prometheus.
func ProvideTurnObserver() resolver.Observer {
	return metrics.NewTurnObserver()
}

// Infrastructure holds the dependencies the HTTP layer needs for health checks and logging.
type Infrastructure struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     zerolog.Logger
}

// NewInfrastructure creates a new infrastructure instance
func NewInfrastructure(db *gorm.DB, redisCache *cache.RedisCache, logger zerolog.Logger) *Infrastructure {
	return &Infrastructure{
		DB:         db,
		RedisCache: redisCache,
		Logger:     logger,
	}
}

// Ready checks the database and, when configured, Redis.
func (i *Infrastructure) Ready(ctx context.Context) error {
	if err := database.Ping(i.DB); err != nil {
		return err
	}
	if i.RedisCache == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return i.RedisCache.HealthCheck(ctx)
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Config
	ProvideConfig,

	// Logger
	ProvideLogger,

	// Database
	ProvideDatabase,

	// Repositories
	repository.RepositoryProvider,

	// Redis backed sessions and locks
	ProvideRedisCache,
	ProvideSessionStore,
	ProvideThreadLocker,

	// Turn correlation
	ProvideCorrelationCache,
	ProvideTurnObserver,

	// Inference
	ProvideInferenceClient,

	// Infrastructure struct
	NewInfrastructure,
)
