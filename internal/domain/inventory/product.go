package inventory

import (
	"time"

	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is the aggregate root for inventory operations. It tracks sellable
// stock for one SKU split across two non-negative counters: available and
// reserved. Counters are mutated exclusively through the ledger service so
// that every change produces exactly one change log entry.
type Product struct {
	shared.BaseEntity
	SKU         string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name        string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"type:text"`

	QuantityAvailable int `gorm:"not null;default:0"`
	QuantityReserved  int `gorm:"not null;default:0"`
	ReorderPoint      int `gorm:"not null;default:10"`
	ReorderQuantity   int `gorm:"not null;default:50"`

	Cost  *decimal.Decimal `gorm:"type:decimal(10,2)"`
	Price *decimal.Decimal `gorm:"type:decimal(10,2)"`

	// Channel-native listing identifiers, populated by catalog import
	ShopifyProductID string `gorm:"type:varchar(100)"`
	AmazonASIN       string `gorm:"type:varchar(20)"`
	EbayItemID       string `gorm:"type:varchar(100)"`
	EtsyListingID    string `gorm:"type:varchar(100)"`

	LastSyncedAt *time.Time
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a product with empty counters
func NewProduct(sku, name string) (*Product, error) {
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	return &Product{
		BaseEntity:      shared.NewBaseEntity(),
		SKU:             sku,
		Name:            name,
		ReorderPoint:    10,
		ReorderQuantity: 50,
	}, nil
}

// ApplyDelta applies a signed delta to the available counter, clamping at
// zero. It returns the counter value before and after the mutation. The
// caller records the requested delta in the change log even when the stored
// value was clamped.
func (p *Product) ApplyDelta(delta int) (before, after int) {
	before = p.QuantityAvailable
	p.QuantityAvailable += delta
	if p.QuantityAvailable < 0 {
		p.QuantityAvailable = 0
	}
	p.UpdatedAt = time.Now()
	return before, p.QuantityAvailable
}

// Reserve moves quantity from available to reserved. It fails without
// mutating either counter when available stock is insufficient.
func (p *Product) Reserve(quantity int) (before, after int, err error) {
	if quantity <= 0 {
		return 0, 0, shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if p.QuantityAvailable < quantity {
		return 0, 0, shared.ErrInsufficientStock
	}
	before = p.QuantityAvailable
	p.QuantityAvailable -= quantity
	p.QuantityReserved += quantity
	p.UpdatedAt = time.Now()
	return before, p.QuantityAvailable, nil
}

// Release moves quantity from reserved back to available, clamping the
// reserved counter at zero on underflow.
func (p *Product) Release(quantity int) (before, after int, err error) {
	if quantity <= 0 {
		return 0, 0, shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	before = p.QuantityAvailable
	p.QuantityAvailable += quantity
	p.QuantityReserved -= quantity
	if p.QuantityReserved < 0 {
		p.QuantityReserved = 0
	}
	p.UpdatedAt = time.Now()
	return before, p.QuantityAvailable, nil
}

// NeedsReorder returns true when available stock is at or below the reorder point
func (p *Product) NeedsReorder() bool {
	return p.QuantityAvailable <= p.ReorderPoint
}

// TotalQuantity returns available + reserved
func (p *Product) TotalQuantity() int {
	return p.QuantityAvailable + p.QuantityReserved
}

// MarkSynced records the time of the last successful channel sync
func (p *Product) MarkSynced(at time.Time) {
	p.LastSyncedAt = &at
	p.UpdatedAt = at
}
