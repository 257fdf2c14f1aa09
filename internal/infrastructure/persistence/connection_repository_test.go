package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/domain/shared"
)

func TestGormConnectionRepository_SaveAndFindByChannel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRepository(db)
	ctx := context.Background()

	conn, err := channel.NewConnection(channel.CodeShopify, `{"shop_url":"example.myshopify.com"}`)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, conn))

	found, err := repo.FindByChannel(ctx, channel.CodeShopify)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, found.ID)
	assert.True(t, found.IsActive)

	_, err = repo.FindByChannel(ctx, channel.CodeEtsy)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormConnectionRepository_SyncBookkeepingRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRepository(db)
	ctx := context.Background()

	conn, err := channel.NewConnection(channel.CodeAmazon, "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, conn))

	conn.RecordSyncSuccess(12)
	require.NoError(t, repo.Save(ctx, conn))

	found, err := repo.FindByChannel(ctx, channel.CodeAmazon)
	require.NoError(t, err)
	assert.Equal(t, channel.SyncOutcomeSuccess, found.LastSyncStatus)
	assert.EqualValues(t, 12, found.OrdersSynced)
	assert.NotNil(t, found.LastSyncAt)

	conn.RecordSyncFailure("channel temporarily unavailable")
	require.NoError(t, repo.Save(ctx, conn))

	found, err = repo.FindByChannel(ctx, channel.CodeAmazon)
	require.NoError(t, err)
	assert.Equal(t, channel.SyncOutcomeFailed, found.LastSyncStatus)
	assert.Equal(t, "channel temporarily unavailable", found.LastError)
}

func TestGormConnectionRepository_FindAllOrderedByChannel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRepository(db)
	ctx := context.Background()

	for _, code := range []channel.Code{channel.CodeShopify, channel.CodeAmazon, channel.CodeEtsy} {
		conn, err := channel.NewConnection(code, "")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, conn))
	}

	conns, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 3)
	assert.Equal(t, channel.CodeAmazon, conns[0].Channel)
	assert.Equal(t, channel.CodeEtsy, conns[1].Channel)
	assert.Equal(t, channel.CodeShopify, conns[2].Channel)
}
