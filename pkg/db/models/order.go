package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/isokofarm/isoko-backend/pkg/enums"
	"github.com/isokofarm/isoko-backend/pkg/types"
)

// Order is the per-farmer order assembled from a buyer's cart at checkout.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID              `gorm:"column:buyer_id;type:uuid;not null;index"`
	FarmerID        uuid.UUID              `gorm:"column:farmer_id;type:uuid;not null;index"`
	Status          enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus    `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	TotalCents      int                    `gorm:"column:total_cents;not null"`
	DeliveryAddress *types.DeliveryAddress `gorm:"column:delivery_address;type:delivery_address_t"`
	Notes           *string                `gorm:"column:notes"`
	Lines           []OrderLine            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ApprovedAt      *time.Time             `gorm:"column:approved_at"`
	ShippedAt       *time.Time             `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time             `gorm:"column:delivered_at"`
	CancelledAt     *time.Time             `gorm:"column:cancelled_at"`
	PaidAt          *time.Time             `gorm:"column:paid_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// Total recomputes the order total from its line snapshots. TotalCents is
// persisted at assembly time; the two must agree.
func (o *Order) Total() int {
	total := 0
	for _, line := range o.Lines {
		total += line.LineTotalCents
	}
	return total
}
