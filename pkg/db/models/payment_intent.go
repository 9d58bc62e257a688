package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/isokofarm/isoko-backend/pkg/enums"
)

// PaymentIntent tracks a single attempt to collect payment for an order.
type PaymentIntent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;index"`
	Status        enums.PaymentIntentStatus `gorm:"column:status;type:payment_intent_status;not null;default:'created'"`
	AmountCents   int                       `gorm:"column:amount_cents;not null"`
	ExternalRef   string                    `gorm:"column:external_ref;type:text;not null;uniqueIndex"`
	ClientSecret  *string                   `gorm:"column:client_secret;type:text"`
	FailureReason *string                   `gorm:"column:failure_reason"`
	SucceededAt   *time.Time                `gorm:"column:succeeded_at"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
