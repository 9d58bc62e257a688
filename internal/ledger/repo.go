package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/pkg/enums"
)

// Repository aggregates paid order revenue for reporting.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	PaidTotals(ctx context.Context, farmerID uuid.UUID, since *time.Time) (paidTotalsRow, error)
	CategoryBreakdown(ctx context.Context, farmerID uuid.UUID, since *time.Time) ([]categoryRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type paidTotalsRow struct {
	OrderCount int64
	GrossCents int64
}

type categoryRow struct {
	Category   enums.ListingCategory
	GrossCents int64
	Quantity   int64
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) PaidTotals(ctx context.Context, farmerID uuid.UUID, since *time.Time) (paidTotalsRow, error) {
	query := r.db.WithContext(ctx).
		Table("orders").
		Select("COUNT(*) AS order_count, COALESCE(SUM(total_cents), 0) AS gross_cents").
		Where("farmer_id = ? AND payment_status = ?", farmerID, enums.PaymentStatusPaid)
	if since != nil {
		query = query.Where("paid_at >= ?", *since)
	}

	var row paidTotalsRow
	err := query.Scan(&row).Error
	return row, err
}

func (r *repository) CategoryBreakdown(ctx context.Context, farmerID uuid.UUID, since *time.Time) ([]categoryRow, error) {
	query := r.db.WithContext(ctx).
		Table("order_lines AS ol").
		Select("l.category AS category, COALESCE(SUM(ol.line_total_cents), 0) AS gross_cents, COALESCE(SUM(ol.quantity), 0) AS quantity").
		Joins("JOIN orders o ON o.id = ol.order_id").
		Joins("JOIN listings l ON l.id = ol.listing_id").
		Where("o.farmer_id = ? AND o.payment_status = ?", farmerID, enums.PaymentStatusPaid)
	if since != nil {
		query = query.Where("o.paid_at >= ?", *since)
	}

	var rows []categoryRow
	err := query.
		Group("l.category").
		Order("gross_cents DESC").
		Scan(&rows).Error
	return rows, err
}
