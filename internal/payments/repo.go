package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
)

// Repository persists payment intent records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error)
	FindByOrderAndRef(ctx context.Context, orderID uuid.UUID, externalRef string) (*models.PaymentIntent, error)
	FindOutstandingByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FailCreatedByOrder(ctx context.Context, orderID uuid.UUID, reason string) (int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentIntent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment intents repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	if err := r.db.WithContext(ctx).Create(intent).Error; err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *repository) FindByOrderAndRef(ctx context.Context, orderID uuid.UUID, externalRef string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND external_ref = ?", orderID, externalRef).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &intent, nil
}

// FindOutstandingByOrder returns the newest still-open intent for the order,
// or nil when none exists.
func (r *repository) FindOutstandingByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentIntentStatusCreated).
		Order("created_at DESC").
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &intent, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FailCreatedByOrder marks every still-open intent on the order as failed.
func (r *repository) FailCreatedByOrder(ctx context.Context, orderID uuid.UUID, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentIntentStatusCreated).
		Updates(map[string]any{
			"status":         enums.PaymentIntentStatusFailed,
			"failure_reason": reason,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentIntent, error) {
	var rows []models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
