package inventory

import (
	"context"

	"github.com/orderhub/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence.
// Lookups are keyed by SKU, the immutable product identifier.
type ProductRepository interface {
	// FindBySKU finds a product by SKU, or shared.ErrNotFound
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindAll returns products matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindBelowReorderPoint returns products whose available quantity is at
	// or below their reorder point
	FindBelowReorderPoint(ctx context.Context, filter shared.Filter) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// Count counts products matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsBySKU checks whether a product with the SKU exists
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
}

// ChangeLogRepository defines the append-only interface for the audit trail.
// Entries are immutable once written; there is no update or delete.
type ChangeLogRepository interface {
	// Append writes one change log entry
	Append(ctx context.Context, entry *ChangeLog) error

	// FindBySKU returns up to limit entries for a SKU, newest first
	FindBySKU(ctx context.Context, sku string, limit int) ([]ChangeLog, error)

	// CountBySKU counts entries for a SKU
	CountBySKU(ctx context.Context, sku string) (int64, error)
}
