package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"

	"jan-server/services/conversation-api/internal/infrastructure/logger"
)

const DefaultTablePrefix = "conversation_api."

var SchemaRegistry []interface{}

func RegisterSchemaForAutoMigrate(models ...interface{}) {
	SchemaRegistry = append(SchemaRegistry, models...)
}

// Config holds database configuration
type Config struct {
	WriteDSN    string
	Read1DSN    string
	TablePrefix string
	MaxIdle     int
	MaxOpen     int
	MaxLifetime time.Duration
	LogLevel    gormlogger.LogLevel
}

// NamingStrategy places every table under the configured schema prefix.
func NamingStrategy(tablePrefix string) schema.NamingStrategy {
	return schema.NamingStrategy{
		TablePrefix:   tablePrefix,
		SingularTable: false,
	}
}

// SchemaName extracts the postgres schema from a table prefix ("conversation_api." -> "conversation_api").
func SchemaName(tablePrefix string) string {
	name := strings.TrimSuffix(tablePrefix, ".")
	if name == "" || name == tablePrefix {
		return strings.TrimSuffix(DefaultTablePrefix, ".")
	}
	return name
}

// Connect creates a new database connection with the given configuration. When a
// read replica DSN is configured, reads are routed to it through dbresolver.
func Connect(cfg Config) (*gorm.DB, error) {
	log := logger.GetLogger()

	if cfg.WriteDSN == "" {
		return nil, fmt.Errorf("database write DSN is empty")
	}
	if cfg.TablePrefix == "" {
		cfg.TablePrefix = DefaultTablePrefix
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.WriteDSN), &gorm.Config{
		NamingStrategy: NamingStrategy(cfg.TablePrefix),
		Logger:         gormlogger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		log.Error().
			Str("error_code", "b3e1f0a7-6c24-4d85-9a1e-2f7c8d0b5e19").
			Err(err).
			Msg("unable to connect to database")
		return nil, err
	}

	if cfg.Read1DSN != "" {
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.Open(cfg.Read1DSN)},
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxIdleConns(cfg.MaxIdle).
			SetMaxOpenConns(cfg.MaxOpen).
			SetConnMaxLifetime(cfg.MaxLifetime)
		if err := db.Use(resolver); err != nil {
			return nil, fmt.Errorf("register read replica: %w", err)
		}
		log.Info().Msg("Read replica registered")
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	log.Info().Msg("Successfully connected to database")
	return db, nil
}

// AutoMigrateSchemas creates every registered schema with gorm's migrator. SQL
// migrations are authoritative in production; this serves tests and local sqlite runs.
func AutoMigrateSchemas(db *gorm.DB) error {
	for _, model := range SchemaRegistry {
		if err := db.AutoMigrate(model); err != nil {
			log := logger.GetLogger()
			log.Error().
				Str("error_code", "75333e43-8157-4f0a-8e34-aa34e6e7c285").
				Err(err).
				Msgf("failed to auto migrate schema: %T", model)
			return err
		}
	}
	return nil
}

// Ping checks connectivity of the primary connection.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
