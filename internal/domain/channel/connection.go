package channel

import (
	"context"
	"time"

	"github.com/orderhub/backend/internal/domain/shared"
)

// Sync outcome values recorded on a connection after a propagation attempt
const (
	SyncOutcomeSuccess = "success"
	SyncOutcomePartial = "partial"
	SyncOutcomeFailed  = "failed"
)

// Connection holds per-channel connection metadata: credentials, activation,
// and bookkeeping about the most recent sync. It carries no business data.
type Connection struct {
	shared.BaseEntity
	Channel  Code   `gorm:"type:varchar(20);not null;uniqueIndex"`
	IsActive bool   `gorm:"not null;default:true"`
	// Credentials is an opaque blob (JSON); the adapter owns its shape
	Credentials string `gorm:"type:text"`

	LastSyncAt     *time.Time
	LastSyncStatus string `gorm:"type:varchar(50)"`
	LastError      string `gorm:"type:text"`
	OrdersSynced   int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Connection) TableName() string {
	return "channel_connections"
}

// NewConnection creates a connection record for a channel
func NewConnection(code Code, credentials string) (*Connection, error) {
	if !code.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANNEL", "Channel code is not a known channel")
	}
	return &Connection{
		BaseEntity:  shared.NewBaseEntity(),
		Channel:     code,
		IsActive:    true,
		Credentials: credentials,
	}, nil
}

// RecordSyncSuccess records a successful sync of count orders
func (c *Connection) RecordSyncSuccess(count int64) {
	now := time.Now()
	c.LastSyncAt = &now
	c.LastSyncStatus = SyncOutcomeSuccess
	c.LastError = ""
	c.OrdersSynced += count
	c.UpdatedAt = now
}

// RecordSyncFailure records a failed sync attempt with the failure reason
func (c *Connection) RecordSyncFailure(reason string) {
	now := time.Now()
	c.LastSyncAt = &now
	c.LastSyncStatus = SyncOutcomeFailed
	c.LastError = reason
	c.UpdatedAt = now
}

// Deactivate marks the connection inactive without discarding credentials
func (c *Connection) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now()
}

// ConnectionRepository defines persistence for channel connections
type ConnectionRepository interface {
	// FindByChannel finds the connection for a channel, or shared.ErrNotFound
	FindByChannel(ctx context.Context, code Code) (*Connection, error)

	// FindAll returns all connection records
	FindAll(ctx context.Context) ([]Connection, error)

	// Save creates or updates a connection record
	Save(ctx context.Context, conn *Connection) error
}
