package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	"github.com/isokofarm/isoko-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  farmer_id TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  delivery_address TEXT,
  notes TEXT,
  approved_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderLines := `
CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  title TEXT NOT NULL,
  unit TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderLines).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, buyerID, farmerID uuid.UUID, created time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		FarmerID:      farmerID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		TotalCents:    1200,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, db.Create(order).Error)

	line := &models.OrderLine{
		ID:             uuid.New(),
		OrderID:        order.ID,
		ListingID:      uuid.New(),
		Title:          "Green beans",
		Unit:           enums.ListingUnitKilogram,
		Quantity:       3,
		UnitPriceCents: 400,
		LineTotalCents: 1200,
		CreatedAt:      created,
	}
	require.NoError(t, db.Create(line).Error)
	return order
}

func TestRepositoryFindByIDPreloadsLines(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, uuid.New(), uuid.New(), time.Now().UTC())

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Lines, 1)
	assert.Equal(t, "Green beans", found.Lines[0].Title)
	assert.Equal(t, 1200, found.Lines[0].LineTotalCents)
}

func TestRepositoryListByBuyerNewestFirst(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	buyerID := uuid.New()
	now := time.Now().UTC()
	older := seedOrder(t, db, buyerID, uuid.New(), now.Add(-time.Hour))
	newer := seedOrder(t, db, buyerID, uuid.New(), now)
	seedOrder(t, db, uuid.New(), uuid.New(), now)

	rows, err := repo.ListByBuyer(context.Background(), buyerID, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
}

func TestRepositoryListByBuyerCursor(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	buyerID := uuid.New()
	now := time.Now().UTC()
	older := seedOrder(t, db, buyerID, uuid.New(), now.Add(-time.Hour))
	newer := seedOrder(t, db, buyerID, uuid.New(), now)

	first, err := repo.ListByBuyer(context.Background(), buyerID, nil, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, newer.ID, first[0].ID)

	cursor := &pagination.Cursor{CreatedAt: first[0].CreatedAt, ID: first[0].ID}
	second, err := repo.ListByBuyer(context.Background(), buyerID, cursor, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, older.ID, second[0].ID)
}

func TestRepositoryListByFarmer(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	farmerID := uuid.New()
	now := time.Now().UTC()
	seedOrder(t, db, uuid.New(), farmerID, now)
	seedOrder(t, db, uuid.New(), uuid.New(), now)

	rows, err := repo.ListByFarmer(context.Background(), farmerID, nil, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRepositoryUpdateSetsFields(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, uuid.New(), uuid.New(), time.Now().UTC())
	now := time.Now().UTC()
	require.NoError(t, repo.Update(context.Background(), order.ID, map[string]any{
		"status":      enums.OrderStatusApproved,
		"approved_at": now,
	}))

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusApproved, found.Status)
	require.NotNil(t, found.ApprovedAt)
}
