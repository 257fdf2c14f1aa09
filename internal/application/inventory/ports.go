package inventory

import (
	"context"

	"github.com/orderhub/backend/internal/domain/inventory"
)

// LockingProductRepository extends the product repository with a locking read
// used inside transactions so counter mutations serialize at the row level.
type LockingProductRepository interface {
	inventory.ProductRepository

	// FindBySKUForUpdate reads a product holding a row lock until the
	// surrounding transaction ends
	FindBySKUForUpdate(ctx context.Context, sku string) (*inventory.Product, error)
}

// TransactionalRepositories provides repositories bound to one transaction
type TransactionalRepositories interface {
	// Products returns the product repository scoped to the transaction
	Products() LockingProductRepository

	// ChangeLogs returns the change log repository scoped to the transaction
	ChangeLogs() inventory.ChangeLogRepository
}

// TransactionScope executes a function atomically. The counter mutation and
// its change log entry must commit together or not at all.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
