package listings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
)

func setupListingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	listings := `
CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  unit TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  available_stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(listings).Error)
	return db
}

func seedListing(t *testing.T, db *gorm.DB, stock int) *models.Listing {
	t.Helper()

	listing := &models.Listing{
		ID:             uuid.New(),
		FarmerID:       uuid.New(),
		Title:          "Irish potatoes",
		Category:       enums.ListingCategoryTubers,
		Unit:           enums.ListingUnitKilogram,
		UnitPriceCents: 400,
		AvailableStock: stock,
		IsActive:       true,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func TestRepositoryDecrementStock(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)

	listing := seedListing(t, db, 10)
	require.NoError(t, repo.DecrementStock(context.Background(), listing.ID, 4))

	reloaded, err := repo.FindByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.AvailableStock)
}

func TestRepositoryDecrementStockInsufficient(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)

	listing := seedListing(t, db, 3)
	err := repo.DecrementStock(context.Background(), listing.ID, 5)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStockConflict))

	reloaded, err := repo.FindByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.AvailableStock, "failed decrement must not change stock")
}

func TestRepositoryIncrementStock(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)

	listing := seedListing(t, db, 2)
	require.NoError(t, repo.IncrementStock(context.Background(), listing.ID, 5))

	reloaded, err := repo.FindByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.AvailableStock)
}

func TestRepositoryFindByIDs(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)

	first := seedListing(t, db, 1)
	second := seedListing(t, db, 1)

	rows, err := repo.FindByIDs(context.Background(), []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
