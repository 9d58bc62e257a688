package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/internal/listings"
	"github.com/isokofarm/isoko-backend/pkg/db/models"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
)

// Service defines buyer-facing cart operations.
type Service interface {
	AddOrIncrement(ctx context.Context, input AddInput) (*models.CartEntry, error)
	UpdateQuantity(ctx context.Context, buyerID, cartID uuid.UUID, quantity int) (*models.CartEntry, error)
	Remove(ctx context.Context, buyerID, cartID uuid.UUID) error
	Clear(ctx context.Context, buyerID uuid.UUID) error
	List(ctx context.Context, buyerID uuid.UUID) ([]models.CartEntry, error)
}

// AddInput carries the fields needed to put a listing into a buyer's cart.
type AddInput struct {
	BuyerID   uuid.UUID
	ListingID uuid.UUID
	Quantity  int
}

type service struct {
	repo     Repository
	listings listings.Repository
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, listingRepo listings.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	return &service{repo: repo, listings: listingRepo}, nil
}

func (s *service) AddOrIncrement(ctx context.Context, input AddInput) (*models.CartEntry, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	listing, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if !listing.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not available")
	}

	existing, err := s.repo.FindByBuyerAndListing(ctx, input.BuyerID, input.ListingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart entry")
	}

	newQty := qty
	if existing != nil {
		newQty = existing.Quantity + qty
	}
	if newQty > listing.AvailableStock {
		return nil, pkgerrors.New(pkgerrors.CodeStockConflict, "requested quantity exceeds available stock").
			WithDetails(map[string]any{"available_stock": listing.AvailableStock})
	}

	if existing != nil {
		if err := s.repo.UpdateQuantity(ctx, existing.ID, newQty); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart entry")
		}
		existing.Quantity = newQty
		return existing, nil
	}

	entry := &models.CartEntry{
		BuyerID:            input.BuyerID,
		ListingID:          listing.ID,
		FarmerID:           listing.FarmerID,
		Quantity:           newQty,
		UnitPriceSnapCents: listing.UnitPriceCents,
	}
	created, err := s.repo.Create(ctx, entry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart entry")
	}
	return created, nil
}

func (s *service) UpdateQuantity(ctx context.Context, buyerID, cartID uuid.UUID, quantity int) (*models.CartEntry, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	entry, err := s.loadOwned(ctx, buyerID, cartID)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.FindByID(ctx, entry.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if quantity > listing.AvailableStock {
		return nil, pkgerrors.New(pkgerrors.CodeStockConflict, "requested quantity exceeds available stock").
			WithDetails(map[string]any{"available_stock": listing.AvailableStock})
	}

	if err := s.repo.UpdateQuantity(ctx, entry.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart entry")
	}
	entry.Quantity = quantity
	return entry, nil
}

func (s *service) Remove(ctx context.Context, buyerID, cartID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	entry, err := s.loadOwned(ctx, buyerID, cartID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, entry.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart entry")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := s.repo.DeleteByBuyer(ctx, buyerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID) ([]models.CartEntry, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart entries")
	}
	return rows, nil
}

func (s *service) loadOwned(ctx context.Context, buyerID, cartID uuid.UUID) (*models.CartEntry, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart entry id required")
	}
	entry, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart entry")
	}
	if entry.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart entry does not belong to buyer")
	}
	return entry, nil
}
