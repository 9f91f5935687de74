package transaction

import (
	"context"

	"gorm.io/gorm"

	"jan-server/services/conversation-api/internal/domain/conversation"
)

type TransactionContextKey struct{}

func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, TransactionContextKey{}, tx)
}

type Database struct {
	db *gorm.DB
}

var _ conversation.Transactor = (*Database)(nil)

// GetTx returns the transaction carried by ctx, or the root connection.
func (t *Database) GetTx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TransactionContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return t.db
}

// Transaction runs fn in a transaction. Calls nested inside an existing transaction
// use a savepoint on the outer one.
func (t *Database) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.GetTx(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}

// DB returns the root connection.
func (t *Database) DB() *gorm.DB {
	return t.db
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db}
}
