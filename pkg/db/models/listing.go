package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/isokofarm/isoko-backend/pkg/enums"
)

// Listing is a farmer's produce offer with live stock and pricing.
type Listing struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID       uuid.UUID             `gorm:"column:farmer_id;type:uuid;not null;index"`
	Title          string                `gorm:"column:title;type:text;not null"`
	Description    *string               `gorm:"column:description;type:text"`
	Category       enums.ListingCategory `gorm:"column:category;type:listing_category;not null"`
	Unit           enums.ListingUnit     `gorm:"column:unit;type:listing_unit;not null"`
	UnitPriceCents int                   `gorm:"column:unit_price_cents;not null"`
	AvailableStock int                   `gorm:"column:available_stock;not null;default:0"`
	IsActive       bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
