package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/pkg/db/models"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
)

// Repository exposes the catalog reads and stock mutations the order core needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error)
	DecrementStock(ctx context.Context, listingID uuid.UUID, qty int) error
	IncrementStock(ctx context.Context, listingID uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a listings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Listing
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// DecrementStock takes qty units off the listing only when enough stock
// remains. Zero affected rows means a concurrent buyer won the remainder.
func (r *repository) DecrementStock(ctx context.Context, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE listings
		SET available_stock = available_stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_stock >= ?
	`, qty, listingID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStockConflict, "insufficient stock for listing")
	}
	return nil
}

// IncrementStock returns qty units to the listing after a reject or cancel.
func (r *repository) IncrementStock(ctx context.Context, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE listings
		SET available_stock = available_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, listingID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment stock")
	}
	return nil
}
