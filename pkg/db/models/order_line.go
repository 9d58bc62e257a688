package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/isokofarm/isoko-backend/pkg/enums"
)

// OrderLine freezes a listing snapshot at assembly time.
type OrderLine struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ListingID      uuid.UUID         `gorm:"column:listing_id;type:uuid;not null"`
	Title          string            `gorm:"column:title;type:text;not null"`
	Unit           enums.ListingUnit `gorm:"column:unit;type:listing_unit;not null"`
	Quantity       int               `gorm:"column:quantity;not null"`
	UnitPriceCents int               `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int               `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
