package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderhub/backend/internal/domain/channel"
)

// ChangeType classifies an inventory counter mutation
type ChangeType string

const (
	// ChangeTypeSale is a sale deduction
	ChangeTypeSale ChangeType = "sale"
	// ChangeTypeRestock is incoming stock
	ChangeTypeRestock ChangeType = "restock"
	// ChangeTypeAdjustment is a manual admin correction
	ChangeTypeAdjustment ChangeType = "adjustment"
	// ChangeTypeSync is a correction driven by a cross-channel sync
	ChangeTypeSync ChangeType = "sync"
	// ChangeTypeReservation moves stock from available to reserved
	ChangeTypeReservation ChangeType = "reservation"
	// ChangeTypeRelease moves stock from reserved back to available
	ChangeTypeRelease ChangeType = "release"
)

// IsValid returns true if the change type is valid
func (t ChangeType) IsValid() bool {
	switch t {
	case ChangeTypeSale, ChangeTypeRestock, ChangeTypeAdjustment,
		ChangeTypeSync, ChangeTypeReservation, ChangeTypeRelease:
		return true
	default:
		return false
	}
}

// String returns the string representation of ChangeType
func (t ChangeType) String() string {
	return string(t)
}

// ChangeLog is one immutable entry in the append-only inventory audit trail.
// Entries are never modified or deleted. QuantityChange holds the requested
// delta; QuantityBefore/QuantityAfter hold the available counter exactly as
// stored, so the two sides can diverge when a mutation was clamped at zero.
type ChangeLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SKU        string     `gorm:"type:varchar(100);not null;index:idx_change_logs_sku_created"`
	ChangeType ChangeType `gorm:"type:varchar(50);not null"`

	QuantityBefore int `gorm:"not null"`
	QuantityAfter  int `gorm:"not null"`
	QuantityChange int `gorm:"not null"`

	Channel  channel.Code `gorm:"type:varchar(20)"`
	OrderRef string       `gorm:"type:varchar(255)"`
	Reason   string       `gorm:"type:varchar(255)"`
	Notes    string       `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;index:idx_change_logs_sku_created,sort:desc"`
}

// TableName returns the table name for GORM
func (ChangeLog) TableName() string {
	return "inventory_change_logs"
}

// ChangeContext carries optional provenance for a ledger mutation
type ChangeContext struct {
	// Channel is the originating sales channel, if any
	Channel channel.Code
	// OrderRef is the related order reference, if any
	OrderRef string
	// Reason is a short human-readable explanation
	Reason string
	// Notes carries free-form detail
	Notes string
}

// NewChangeLog creates an audit entry for one counter mutation
func NewChangeLog(sku string, changeType ChangeType, before, after, change int, cctx ChangeContext) *ChangeLog {
	return &ChangeLog{
		ID:             uuid.New(),
		SKU:            sku,
		ChangeType:     changeType,
		QuantityBefore: before,
		QuantityAfter:  after,
		QuantityChange: change,
		Channel:        cctx.Channel,
		OrderRef:       cctx.OrderRef,
		Reason:         cctx.Reason,
		Notes:          cctx.Notes,
		CreatedAt:      time.Now(),
	}
}
