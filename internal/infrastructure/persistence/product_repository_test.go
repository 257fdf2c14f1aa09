package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/domain/inventory"
	"github.com/orderhub/backend/internal/domain/shared"
)

// setupTestDB creates an in-memory SQLite database with the ledger schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&inventory.Product{},
		&inventory.ChangeLog{},
		&channel.Connection{},
	))
	return db
}

func mustProduct(t *testing.T, sku, name string, available int) *inventory.Product {
	t.Helper()
	product, err := inventory.NewProduct(sku, name)
	require.NoError(t, err)
	product.QuantityAvailable = available
	return product
}

func TestGormProductRepository_SaveAndFindBySKU(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	product := mustProduct(t, "WIDGET-001", "Premium Widget", 25)
	require.NoError(t, repo.Save(ctx, product))

	found, err := repo.FindBySKU(ctx, "WIDGET-001")
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)
	assert.Equal(t, "Premium Widget", found.Name)
	assert.Equal(t, 25, found.QuantityAvailable)
	assert.Equal(t, 10, found.ReorderPoint)
}

func TestGormProductRepository_FindBySKUNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)

	_, err := repo.FindBySKU(context.Background(), "MISSING-000")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProductRepository_ExistsBySKU(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, mustProduct(t, "TOOL-123", "Professional Tool Set", 5)))

	exists, err := repo.ExistsBySKU(ctx, "TOOL-123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsBySKU(ctx, "NOPE-000")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormProductRepository_FindBelowReorderPoint(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	low := mustProduct(t, "ACC-999", "Deluxe Accessory Kit", 3)
	high := mustProduct(t, "GADGET-042", "Smart Gadget Pro", 80)
	boundary := mustProduct(t, "TOOL-123", "Professional Tool Set", 10)
	require.NoError(t, repo.Save(ctx, low))
	require.NoError(t, repo.Save(ctx, high))
	require.NoError(t, repo.Save(ctx, boundary))

	products, err := repo.FindBelowReorderPoint(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, products, 2)

	skus := []string{products[0].SKU, products[1].SKU}
	assert.Contains(t, skus, "ACC-999")
	assert.Contains(t, skus, "TOOL-123")
}

func TestGormProductRepository_FindAllWithSearchAndPaging(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, mustProduct(t, "WIDGET-001", "Premium Widget", 10)))
	require.NoError(t, repo.Save(ctx, mustProduct(t, "WIDGET-002", "Budget Widget", 10)))
	require.NoError(t, repo.Save(ctx, mustProduct(t, "GADGET-042", "Smart Gadget Pro", 10)))

	filter := shared.Filter{Page: 1, PageSize: 10, OrderBy: "sku", OrderDir: "asc", Search: "widget"}
	products, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "WIDGET-001", products[0].SKU)

	count, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	filter.PageSize = 1
	filter.Page = 2
	products, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "WIDGET-002", products[0].SKU)
}

// newMockProductRepository creates a repository over a mocked postgres connection
func newMockProductRepository(t *testing.T) (*GormProductRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"})
	gormDB, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewGormProductRepository(gormDB), mock, mockDB
}

func TestGormProductRepository_FindBySKUForUpdateLocks(t *testing.T) {
	repo, mock, mockDB := newMockProductRepository(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"id", "sku", "name", "quantity_available", "quantity_reserved"}).
		AddRow("4fa8a73e-6c2f-43a9-89a4-0a9f6e2ff001", "WIDGET-001", "Premium Widget", 25, 0)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE sku = \$1 (.+) FOR UPDATE`).
		WithArgs("WIDGET-001", 1).
		WillReturnRows(rows)

	product, err := repo.FindBySKUForUpdate(context.Background(), "WIDGET-001")
	require.NoError(t, err)
	assert.Equal(t, "WIDGET-001", product.SKU)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_FindBySKUPropagatesDriverError(t *testing.T) {
	repo, mock, mockDB := newMockProductRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.FindBySKU(context.Background(), "WIDGET-001")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
