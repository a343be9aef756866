package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentio/backend/internal/domain/shared"
)

type txKey struct{}

// GormTransactionManager implements shared.TransactionManager by carrying
// the open *gorm.DB transaction through the context. Repositories in this
// package pick it up via dbFrom, so multi-repository writes commit or roll
// back as one.
type GormTransactionManager struct {
	db *gorm.DB
}

// NewGormTransactionManager creates a new GormTransactionManager
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// InTransaction runs fn inside a transaction. Nested calls join the
// transaction already bound to ctx instead of opening another one.
func (m *GormTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transaction bound to ctx, or the repository's own
// handle when the caller did not open one.
func dbFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}

// Ensure GormTransactionManager implements the interface
var _ shared.TransactionManager = (*GormTransactionManager)(nil)
