// Package databasetest opens throwaway sqlite databases with the service schema.
package databasetest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/conversation-api/internal/infrastructure/database"
	_ "jan-server/services/conversation-api/internal/infrastructure/database/dbschema"
	"jan-server/services/conversation-api/internal/infrastructure/database/transaction"
)

var counter atomic.Int64

// Open returns an in-memory database with every registered schema migrated. Tables
// carry no schema prefix since sqlite has no schemas.
func Open(t testing.TB) *transaction.Database {
	t.Helper()

	dsn := fmt.Sprintf("file:conversation_api_%d?mode=memory&cache=shared", counter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NamingStrategy: database.NamingStrategy(""),
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrateSchemas(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return transaction.NewDatabase(db)
}
