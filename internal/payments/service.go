package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/internal/orders"
	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/logger"
	"github.com/isokofarm/isoko-backend/pkg/outbox"
	"github.com/isokofarm/isoko-backend/pkg/outbox/payloads"
)

// defaultCurrency is the settlement currency for marketplace orders.
const defaultCurrency = "rwf"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reconciles order payments against the processor.
type Service interface {
	CreateIntent(ctx context.Context, input IntentInput) (*models.PaymentIntent, error)
	Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error)
	VoidCreatedByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error
}

// IntentInput identifies the order a buyer wants to pay for.
type IntentInput struct {
	OrderID uuid.UUID
	BuyerID uuid.UUID
}

// ConfirmInput carries the processor reference the buyer claims has settled.
type ConfirmInput struct {
	OrderID     uuid.UUID
	ExternalRef string
	BuyerID     uuid.UUID
}

type service struct {
	repo      Repository
	orders    orders.Repository
	processor Processor
	tx        txRunner
	outbox    outboxPublisher
	logg      *logger.Logger
}

// NewService builds a payments service with the required dependencies.
func NewService(repo Repository, orderRepo orders.Repository, processor Processor, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if processor == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		orders:    orderRepo,
		processor: processor,
		tx:        tx,
		outbox:    outboxSvc,
		logg:      logg,
	}, nil
}

// CreateIntent opens a payment intent for a shipped, unpaid order. An
// outstanding open intent for the same order is returned instead of
// registering a second one with the processor.
func (s *service) CreateIntent(ctx context.Context, input IntentInput) (*models.PaymentIntent, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *models.PaymentIntent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		intentRepo := s.repo.WithTx(tx)

		order, err := orderRepo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}
		if order.Status != enums.OrderStatusShipped || order.PaymentStatus != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable").
				WithDetails(map[string]any{
					"status":         order.Status,
					"payment_status": order.PaymentStatus,
				})
		}

		existing, err := intentRepo.FindOutstandingByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load outstanding intent")
		}
		if existing != nil {
			result = existing
			return nil
		}

		created, err := s.processor.CreateIntent(ctx, int64(order.TotalCents), defaultCurrency, order.ID.String())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register intent with processor")
		}

		record := &models.PaymentIntent{
			OrderID:     order.ID,
			Status:      enums.PaymentIntentStatusCreated,
			AmountCents: order.TotalCents,
			ExternalRef: created.ExternalRef,
		}
		if created.ClientSecret != "" {
			secret := created.ClientSecret
			record.ClientSecret = &secret
		}
		if _, err := intentRepo.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment intent")
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Confirm verifies the referenced intent against the processor before
// marking the order paid. Re-confirming an already paid order succeeds
// without emitting a second event.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ExternalRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	intent, err := s.repo.FindByOrderAndRef(ctx, input.OrderID, input.ExternalRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentMismatch, "payment reference does not match order")
	}

	// Re-confirming an already paid order must not depend on the processor
	// being reachable.
	current, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if current.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
	}
	if current.PaymentStatus == enums.PaymentStatusPaid {
		return current, nil
	}

	remote, err := s.processor.RetrieveIntent(ctx, input.ExternalRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify intent with processor")
	}

	var result *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		intentRepo := s.repo.WithTx(tx)

		order, err := orderRepo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}

		if order.PaymentStatus == enums.PaymentStatusPaid {
			result = order
			return nil
		}

		if remote.Status != ProcessorStatusSucceeded {
			updates := map[string]any{
				"failure_reason": fmt.Sprintf("processor status %s", remote.Status),
			}
			if remote.Status == ProcessorStatusCanceled {
				updates["status"] = enums.PaymentIntentStatusFailed
			}
			if err := intentRepo.Update(ctx, intent.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record intent failure")
			}
			return pkgerrors.New(pkgerrors.CodePaymentMismatch, "payment has not succeeded at processor").
				WithDetails(map[string]any{"processor_status": remote.Status})
		}

		now := time.Now().UTC()
		if err := intentRepo.Update(ctx, intent.ID, map[string]any{
			"status":       enums.PaymentIntentStatusSucceeded,
			"succeeded_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark intent succeeded")
		}
		if err := orderRepo.Update(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"paid_at":        now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaidAt = &now
		result = order

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID: input.BuyerID,
				Role:   enums.UserRoleBuyer.String(),
			},
			Data: payloads.OrderPaidEvent{
				OrderID:         order.ID,
				BuyerID:         order.BuyerID,
				FarmerID:        order.FarmerID,
				PaymentIntentID: intent.ID,
				AmountCents:     intent.AmountCents,
				PaidAt:          now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// VoidCreatedByOrder fails every still-open intent on the order inside the
// caller's transaction, then cancels the matching processor intents best
// effort. A cancellation that slips through is harmless; Confirm re-checks
// order state, so a live processor intent cannot pay a dead order.
func (s *service) VoidCreatedByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	intentRepo := s.repo.WithTx(tx)
	intents, err := intentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order intents")
	}
	voided, err := intentRepo.FailCreatedByOrder(ctx, orderID, reason)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void open intents")
	}
	if voided == 0 {
		return nil
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"voided":   voided,
	})
	s.logg.Info(logCtx, "open payment intents voided")

	for _, intent := range intents {
		if intent.Status != enums.PaymentIntentStatusCreated || intent.ExternalRef == "" {
			continue
		}
		if cancelErr := s.processor.CancelIntent(ctx, intent.ExternalRef); cancelErr != nil {
			refCtx := s.logg.WithField(logCtx, "external_ref", intent.ExternalRef)
			refCtx = s.logg.WithField(refCtx, "error", cancelErr.Error())
			s.logg.Warn(refCtx, "failed to cancel processor intent")
		}
	}
	return nil
}
