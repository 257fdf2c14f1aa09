package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/domain/shared"
)

// GormConnectionRepository implements channel.ConnectionRepository using GORM
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// FindByChannel finds the connection record for a channel
func (r *GormConnectionRepository) FindByChannel(ctx context.Context, code channel.Code) (*channel.Connection, error) {
	var conn channel.Connection
	if err := r.db.WithContext(ctx).First(&conn, "channel = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindAll returns all connection records ordered by channel code
func (r *GormConnectionRepository) FindAll(ctx context.Context) ([]channel.Connection, error) {
	var conns []channel.Connection
	if err := r.db.WithContext(ctx).Order("channel ASC").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Save creates or updates a connection record
func (r *GormConnectionRepository) Save(ctx context.Context, conn *channel.Connection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

var _ channel.ConnectionRepository = (*GormConnectionRepository)(nil)
