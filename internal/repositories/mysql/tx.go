package mysql

import (
	"context"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"gorm.io/gorm"
)

type txKey struct{}

var _ repositories.Transactor = (*TxManager)(nil)

// TxManager runs gorm transactions and carries the *gorm.DB of the open
// transaction in the context.
type TxManager struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewTxManager creates a new TxManager
func NewTxManager(db *gorm.DB, timeout time.Duration) *TxManager {
	return &TxManager{db: db, timeout: timeout}
}

// WithTx runs fn in a transaction, joining one already open in ctx.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	return translateError("transaction", err)
}

// conn returns the transaction in ctx or the pool.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
