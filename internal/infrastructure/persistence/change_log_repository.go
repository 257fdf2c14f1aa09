package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/orderhub/backend/internal/domain/inventory"
)

// GormChangeLogRepository implements inventory.ChangeLogRepository using GORM.
// The table is append-only; this repository deliberately exposes no update or
// delete path.
type GormChangeLogRepository struct {
	db *gorm.DB
}

// NewGormChangeLogRepository creates a new GormChangeLogRepository
func NewGormChangeLogRepository(db *gorm.DB) *GormChangeLogRepository {
	return &GormChangeLogRepository{db: db}
}

// Append writes one change log entry
func (r *GormChangeLogRepository) Append(ctx context.Context, entry *inventory.ChangeLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindBySKU returns up to limit entries for a SKU, newest first
func (r *GormChangeLogRepository) FindBySKU(ctx context.Context, sku string, limit int) ([]inventory.ChangeLog, error) {
	var entries []inventory.ChangeLog
	query := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountBySKU counts entries for a SKU
func (r *GormChangeLogRepository) CountBySKU(ctx context.Context, sku string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&inventory.ChangeLog{}).
		Where("sku = ?", sku).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ inventory.ChangeLogRepository = (*GormChangeLogRepository)(nil)
