package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/orderhub/backend/internal/application/inventory"
	"github.com/orderhub/backend/internal/domain/inventory"
	"github.com/orderhub/backend/internal/domain/shared"
)

func TestGormTransactionScope_CommitsCounterAndLogTogether(t *testing.T) {
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	product := mustProduct(t, "WIDGET-001", "Premium Widget", 50)
	require.NoError(t, NewGormProductRepository(db).Save(ctx, product))

	err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		p, err := repos.Products().FindBySKU(ctx, "WIDGET-001")
		if err != nil {
			return err
		}
		before, after := p.ApplyDelta(-2)
		if err := repos.Products().Save(ctx, p); err != nil {
			return err
		}
		return repos.ChangeLogs().Append(ctx, inventory.NewChangeLog(
			"WIDGET-001", inventory.ChangeTypeSale, before, after, -2, inventory.ChangeContext{}))
	})
	require.NoError(t, err)

	found, err := NewGormProductRepository(db).FindBySKU(ctx, "WIDGET-001")
	require.NoError(t, err)
	assert.Equal(t, 48, found.QuantityAvailable)

	count, err := NewGormChangeLogRepository(db).CountBySKU(ctx, "WIDGET-001")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestGormTransactionScope_RollsBackBothOnError(t *testing.T) {
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	product := mustProduct(t, "TOOL-123", "Professional Tool Set", 10)
	require.NoError(t, NewGormProductRepository(db).Save(ctx, product))

	boom := errors.New("boom")
	err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		p, err := repos.Products().FindBySKU(ctx, "TOOL-123")
		if err != nil {
			return err
		}
		before, after := p.ApplyDelta(-5)
		if err := repos.Products().Save(ctx, p); err != nil {
			return err
		}
		if err := repos.ChangeLogs().Append(ctx, inventory.NewChangeLog(
			"TOOL-123", inventory.ChangeTypeSale, before, after, -5, inventory.ChangeContext{})); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := NewGormProductRepository(db).FindBySKU(ctx, "TOOL-123")
	require.NoError(t, err)
	assert.Equal(t, 10, found.QuantityAvailable)

	count, err := NewGormChangeLogRepository(db).CountBySKU(ctx, "TOOL-123")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestGormTransactionScope_DomainErrorPassesThrough(t *testing.T) {
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db)

	err := scope.Execute(context.Background(), func(repos appinv.TransactionalRepositories) error {
		_, err := repos.Products().FindBySKU(context.Background(), "MISSING-000")
		return err
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
