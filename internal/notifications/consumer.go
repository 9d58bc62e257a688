package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	"github.com/isokofarm/isoko-backend/pkg/logger"
	"github.com/isokofarm/isoko-backend/pkg/outbox"
	"github.com/isokofarm/isoko-backend/pkg/outbox/idempotency"
	"github.com/isokofarm/isoko-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type adminLister interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Consumer watches domain events and fans them out into per-recipient
// notifications.
type Consumer struct {
	repo         repository
	admins       adminLister
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, admins adminLister, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin lister required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		admins:       admins,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, eventID, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification fan-out failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, eventID uuid.UUID, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode order created payload: %w", err)
		}
		return c.notifyOrderCreated(ctx, eventID, payload, logCtx)
	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode status changed payload: %w", err)
		}
		return c.notifyStatusChanged(ctx, eventID, payload, logCtx)
	case enums.EventOrderPaid:
		var payload payloads.OrderPaidEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode order paid payload: %w", err)
		}
		return c.notifyOrderPaid(ctx, eventID, payload, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) notifyOrderCreated(ctx context.Context, eventID uuid.UUID, payload payloads.OrderCreatedEvent, logCtx context.Context) error {
	if payload.FarmerID == uuid.Nil {
		return fmt.Errorf("farmer id missing")
	}
	notification := &models.Notification{
		RecipientID:   payload.FarmerID,
		RecipientRole: enums.UserRoleFarmer,
		EventID:       eventID,
		OrderID:       payload.OrderID,
		Type:          enums.NotificationTypeOrderCreated,
		Title:         "New order received",
		Message:       fmt.Sprintf("You have a new order with %d items awaiting approval.", payload.LineCount),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "farmer notified of new order")
	return nil
}

func (c *Consumer) notifyStatusChanged(ctx context.Context, eventID uuid.UUID, payload payloads.OrderStatusChangedEvent, logCtx context.Context) error {
	if payload.BuyerID == uuid.Nil {
		return fmt.Errorf("buyer id missing")
	}

	notificationType, ok := statusNotificationType(payload.ToStatus)
	if !ok {
		c.logg.Info(logCtx, "status not handled")
		return nil
	}

	message := fmt.Sprintf("Your order is now %s.", payload.ToStatus)
	if payload.ToStatus == enums.OrderStatusCancelled && payload.Reason != "" {
		message = fmt.Sprintf("Your order was cancelled. Reason: %s", payload.Reason)
	}
	buyerNote := &models.Notification{
		RecipientID:   payload.BuyerID,
		RecipientRole: enums.UserRoleBuyer,
		EventID:       eventID,
		OrderID:       payload.OrderID,
		Type:          notificationType,
		Title:         "Order updated",
		Message:       message,
	}
	if err := c.repo.Create(ctx, buyerNote); err != nil {
		return err
	}
	c.logg.Info(logCtx, "buyer notified of status change")

	if payload.ToStatus != enums.OrderStatusCancelled {
		return nil
	}
	adminIDs, err := c.admins.ListAdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	for _, adminID := range adminIDs {
		adminNote := &models.Notification{
			RecipientID:   adminID,
			RecipientRole: enums.UserRoleAdmin,
			EventID:       eventID,
			OrderID:       payload.OrderID,
			Type:          enums.NotificationTypeOrderCancelled,
			Title:         "Order cancelled",
			Message:       fmt.Sprintf("Order %s was cancelled via %s.", payload.OrderID, payload.Action),
		}
		if err := c.repo.Create(ctx, adminNote); err != nil {
			return err
		}
	}
	if len(adminIDs) > 0 {
		c.logg.Info(logCtx, "admins notified of cancellation")
	}
	return nil
}

func (c *Consumer) notifyOrderPaid(ctx context.Context, eventID uuid.UUID, payload payloads.OrderPaidEvent, logCtx context.Context) error {
	if payload.BuyerID == uuid.Nil {
		return fmt.Errorf("buyer id missing")
	}
	if payload.FarmerID == uuid.Nil {
		return fmt.Errorf("farmer id missing")
	}
	buyerNote := &models.Notification{
		RecipientID:   payload.BuyerID,
		RecipientRole: enums.UserRoleBuyer,
		EventID:       eventID,
		OrderID:       payload.OrderID,
		Type:          enums.NotificationTypeOrderPaid,
		Title:         "Payment confirmed",
		Message:       fmt.Sprintf("Your payment of %d cents for order %s was confirmed.", payload.AmountCents, payload.OrderID),
	}
	if err := c.repo.Create(ctx, buyerNote); err != nil {
		return err
	}
	farmerNote := &models.Notification{
		RecipientID:   payload.FarmerID,
		RecipientRole: enums.UserRoleFarmer,
		EventID:       eventID,
		OrderID:       payload.OrderID,
		Type:          enums.NotificationTypeOrderPaid,
		Title:         "Order paid",
		Message:       fmt.Sprintf("Payment of %d cents was confirmed for order %s.", payload.AmountCents, payload.OrderID),
	}
	if err := c.repo.Create(ctx, farmerNote); err != nil {
		return err
	}
	c.logg.Info(logCtx, "buyer and farmer notified of payment")
	return nil
}

func statusNotificationType(status enums.OrderStatus) (enums.NotificationType, bool) {
	switch status {
	case enums.OrderStatusApproved:
		return enums.NotificationTypeOrderApproved, true
	case enums.OrderStatusShipped:
		return enums.NotificationTypeOrderShipped, true
	case enums.OrderStatusDelivered:
		return enums.NotificationTypeOrderDelivered, true
	case enums.OrderStatusCancelled:
		return enums.NotificationTypeOrderCancelled, true
	default:
		return "", false
	}
}
