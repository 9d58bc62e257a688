package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/internal/listings"
	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/outbox"
	"github.com/isokofarm/isoko-backend/pkg/outbox/payloads"
	"github.com/isokofarm/isoko-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// IntentVoider fails any outstanding payment intents when an order dies.
type IntentVoider interface {
	VoidCreatedByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error
}

// Service drives order lifecycle transitions and reads.
type Service interface {
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Get(ctx context.Context, input ActorInput, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, input ActorInput, params pagination.Params) ([]models.Order, string, error)
}

// ActorInput identifies who is asking.
type ActorInput struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// TransitionInput captures a lifecycle action request against one order.
type TransitionInput struct {
	OrderID uuid.UUID
	Action  enums.OrderAction
	Actor   ActorInput
	Reason  string
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	listings listings.Repository
	intents  IntentVoider
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, listingRepo listings.Repository, intents IntentVoider) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if intents == nil {
		return nil, fmt.Errorf("intent voider required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		listings: listingRepo,
		intents:  intents,
	}, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order action")
	}
	if !RoleAllowed(input.Action, input.Actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "action not allowed for role")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if err := checkActorOwnership(order, input.Action, input.Actor); err != nil {
			return err
		}

		target, ok := NextStatus(order.Status, input.Action)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed from current status").
				WithDetails(map[string]any{
					"current_status": order.Status,
					"action":         input.Action,
				})
		}

		if target == enums.OrderStatusCancelled && order.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "paid order cannot be cancelled")
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": target}
		switch target {
		case enums.OrderStatusApproved:
			updates["approved_at"] = now
		case enums.OrderStatusShipped:
			updates["shipped_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
			if order.PaymentStatus == enums.PaymentStatusPending {
				updates["payment_status"] = enums.PaymentStatusCancelled
			}
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		if restoresStock(input.Action) {
			lines, err := repo.FindLinesByOrder(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
			}
			listingRepo := s.listings.WithTx(tx)
			for _, line := range lines {
				if err := listingRepo.IncrementStock(ctx, line.ListingID, line.Quantity); err != nil {
					return err
				}
			}
			reason := fmt.Sprintf("order %s", input.Action)
			if err := s.intents.VoidCreatedByOrder(ctx, tx, order.ID, reason); err != nil {
				return err
			}
		}

		from := order.Status
		order.Status = target
		if payment, ok := updates["payment_status"].(enums.PaymentStatus); ok {
			order.PaymentStatus = payment
		}
		result = order

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				BuyerID:    order.BuyerID,
				FarmerID:   order.FarmerID,
				FromStatus: from,
				ToStatus:   target,
				Action:     input.Action,
				Reason:     input.Reason,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, input ActorInput, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !canView(order, input) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, input ActorInput, params pagination.Params) ([]models.Order, string, error) {
	if input.UserID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	var rows []models.Order
	switch input.Role {
	case enums.UserRoleFarmer:
		rows, err = s.repo.ListByFarmer(ctx, input.UserID, cursor, pagination.LimitWithBuffer(params.Limit))
	default:
		rows, err = s.repo.ListByBuyer(ctx, input.UserID, cursor, pagination.LimitWithBuffer(params.Limit))
	}
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func checkActorOwnership(order *models.Order, action enums.OrderAction, actor ActorInput) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	switch action {
	case enums.OrderActionCancel:
		if order.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}
	default:
		if order.FarmerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to farmer")
		}
	}
	return nil
}

func canView(order *models.Order, actor ActorInput) bool {
	if actor.Role == enums.UserRoleAdmin {
		return true
	}
	return order.BuyerID == actor.UserID || order.FarmerID == actor.UserID
}

func buildActor(actor ActorInput) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
}
