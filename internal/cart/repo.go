package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/pkg/db/models"
)

// Repository persists cart entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.CartEntry) (*models.CartEntry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CartEntry, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CartEntry, error)
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartEntry, error)
	FindByBuyerAndListing(ctx context.Context, buyerID, listingID uuid.UUID) (*models.CartEntry, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBuyer(ctx context.Context, buyerID uuid.UUID) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.CartEntry) (*models.CartEntry, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CartEntry, error) {
	var entry models.CartEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CartEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.CartEntry
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartEntry, error) {
	var rows []models.CartEntry
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindByBuyerAndListing(ctx context.Context, buyerID, listingID uuid.UUID) (*models.CartEntry, error) {
	var entry models.CartEntry
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND listing_id = ?", buyerID, listingID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartEntry{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CartEntry{}).Error
}

func (r *repository) DeleteByBuyer(ctx context.Context, buyerID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("buyer_id = ?", buyerID).Delete(&models.CartEntry{}).Error
}

func (r *repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.CartEntry{}).Error
}
