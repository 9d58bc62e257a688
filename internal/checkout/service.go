package checkout

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/internal/cart"
	"github.com/isokofarm/isoko-backend/internal/listings"
	"github.com/isokofarm/isoko-backend/internal/orders"
	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/outbox"
	"github.com/isokofarm/isoko-backend/pkg/outbox/payloads"
	"github.com/isokofarm/isoko-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service turns a buyer's cart entries into per-farmer orders.
type Service interface {
	CreateFromCart(ctx context.Context, input CreateInput) ([]models.Order, error)
}

// CreateInput carries everything needed to assemble orders at checkout.
// Empty CartEntryIDs means the whole cart.
type CreateInput struct {
	BuyerID         uuid.UUID
	CartEntryIDs    []uuid.UUID
	DeliveryAddress types.DeliveryAddress
	Notes           *string
}

type service struct {
	carts    cart.Repository
	orders   orders.Repository
	listings listings.Repository
	tx       txRunner
	outbox   outboxPublisher
}

// NewService builds a checkout service with the required dependencies.
func NewService(cartRepo cart.Repository, orderRepo orders.Repository, listingRepo listings.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		carts:    cartRepo,
		orders:   orderRepo,
		listings: listingRepo,
		tx:       tx,
		outbox:   outboxSvc,
	}, nil
}

// CreateFromCart runs the whole assembly in one transaction so a stock
// shortfall on any line aborts every order from the same checkout.
func (s *service) CreateFromCart(ctx context.Context, input CreateInput) ([]models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := input.DeliveryAddress.Value(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address incomplete")
	}

	var created []models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)
		listingRepo := s.listings.WithTx(tx)

		entries, err := s.loadEntries(ctx, cartRepo, input)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		listingByID, err := s.loadListings(ctx, listingRepo, entries)
		if err != nil {
			return err
		}

		groups := groupByFarmer(entries)
		created = make([]models.Order, 0, len(groups))
		consumed := make([]uuid.UUID, 0, len(entries))

		for _, group := range groups {
			order := &models.Order{
				BuyerID:         input.BuyerID,
				FarmerID:        group.farmerID,
				Status:          enums.OrderStatusPending,
				PaymentStatus:   enums.PaymentStatusPending,
				DeliveryAddress: &input.DeliveryAddress,
				Notes:           input.Notes,
			}

			lines := make([]models.OrderLine, 0, len(group.entries))
			total := 0
			for _, entry := range group.entries {
				listing, ok := listingByID[entry.ListingID]
				if !ok || !listing.IsActive {
					return pkgerrors.New(pkgerrors.CodeNotFound, "listing no longer available").
						WithDetails(map[string]any{"listing_id": entry.ListingID})
				}

				// Current listing price wins over the cart snapshot.
				if err := listingRepo.DecrementStock(ctx, listing.ID, entry.Quantity); err != nil {
					if pkgerrors.HasCode(err, pkgerrors.CodeStockConflict) {
						return pkgerrors.New(pkgerrors.CodeStockConflict, "insufficient stock for listing").
							WithDetails(map[string]any{"listing_id": listing.ID})
					}
					return err
				}
				lineTotal := listing.UnitPriceCents * entry.Quantity
				total += lineTotal
				lines = append(lines, models.OrderLine{
					ListingID:      listing.ID,
					Title:          listing.Title,
					Unit:           listing.Unit,
					Quantity:       entry.Quantity,
					UnitPriceCents: listing.UnitPriceCents,
					LineTotalCents: lineTotal,
				})
				consumed = append(consumed, entry.ID)
			}

			order.TotalCents = total
			if _, err := orderRepo.Create(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			for i := range lines {
				lines[i].OrderID = order.ID
			}
			if err := orderRepo.CreateLines(ctx, lines); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order lines")
			}
			order.Lines = lines

			event := outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor: &outbox.ActorRef{
					UserID: input.BuyerID,
					Role:   enums.UserRoleBuyer.String(),
				},
				Data: payloads.OrderCreatedEvent{
					OrderID:    order.ID,
					BuyerID:    order.BuyerID,
					FarmerID:   order.FarmerID,
					TotalCents: order.TotalCents,
					LineCount:  len(lines),
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
			created = append(created, *order)
		}

		if err := cartRepo.DeleteByIDs(ctx, consumed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear checked out cart entries")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) loadEntries(ctx context.Context, repo cart.Repository, input CreateInput) ([]models.CartEntry, error) {
	if len(input.CartEntryIDs) == 0 {
		rows, err := repo.FindByBuyer(ctx, input.BuyerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart entries")
		}
		return rows, nil
	}

	rows, err := repo.FindByIDs(ctx, input.CartEntryIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart entries")
	}
	if len(rows) != len(input.CartEntryIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart entry not found")
	}
	for _, row := range rows {
		if row.BuyerID != input.BuyerID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart entry does not belong to buyer")
		}
	}
	return rows, nil
}

func (s *service) loadListings(ctx context.Context, repo listings.Repository, entries []models.CartEntry) (map[uuid.UUID]models.Listing, error) {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ListingID)
	}
	rows, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listings")
	}
	byID := make(map[uuid.UUID]models.Listing, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	return byID, nil
}

type farmerGroup struct {
	farmerID uuid.UUID
	entries  []models.CartEntry
}

// groupByFarmer buckets entries per farmer with a stable order so the
// resulting orders come out deterministically.
func groupByFarmer(entries []models.CartEntry) []farmerGroup {
	byFarmer := make(map[uuid.UUID][]models.CartEntry)
	for _, entry := range entries {
		byFarmer[entry.FarmerID] = append(byFarmer[entry.FarmerID], entry)
	}
	groups := make([]farmerGroup, 0, len(byFarmer))
	for farmerID, rows := range byFarmer {
		groups = append(groups, farmerGroup{farmerID: farmerID, entries: rows})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].farmerID.String() < groups[j].farmerID.String()
	})
	return groups
}
