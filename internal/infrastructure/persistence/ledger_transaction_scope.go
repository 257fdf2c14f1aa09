package persistence

import (
	"context"

	"gorm.io/gorm"

	appinv "github.com/orderhub/backend/internal/application/inventory"
	"github.com/orderhub/backend/internal/domain/inventory"
)

// GormTransactionScope implements the ledger's TransactionScope using GORM
// transactions. The counter mutation and its change log entry commit
// atomically; any error rolls both back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories binds repositories to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Products returns the product repository scoped to the current transaction
func (r *gormTransactionalRepositories) Products() appinv.LockingProductRepository {
	return NewGormProductRepository(r.tx)
}

// ChangeLogs returns the change log repository scoped to the current transaction
func (r *gormTransactionalRepositories) ChangeLogs() inventory.ChangeLogRepository {
	return NewGormChangeLogRepository(r.tx)
}

var _ appinv.TransactionScope = (*GormTransactionScope)(nil)
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
