package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/isokofarm/isoko-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order assembled from a buyer's cart.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	FarmerID   uuid.UUID `json:"farmer_id"`
	TotalCents int       `json:"total_cents"`
	LineCount  int       `json:"line_count"`
}

// OrderStatusChangedEvent is emitted on every fulfilment transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	BuyerID    uuid.UUID         `json:"buyer_id"`
	FarmerID   uuid.UUID         `json:"farmer_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Action     enums.OrderAction `json:"action"`
	Reason     string            `json:"reason,omitempty"`
}

// OrderPaidEvent is emitted once a payment intent is confirmed against the processor.
type OrderPaidEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	BuyerID         uuid.UUID `json:"buyer_id"`
	FarmerID        uuid.UUID `json:"farmer_id"`
	PaymentIntentID uuid.UUID `json:"payment_intent_id"`
	AmountCents     int       `json:"amount_cents"`
	PaidAt          time.Time `json:"paid_at"`
}
