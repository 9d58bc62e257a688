package models

import (
	"time"

	"github.com/google/uuid"
)

// CartEntry keeps a buyer's pending selection with a price snapshot taken at
// the moment the entry was added. Checkout reprices from the live listing.
type CartEntry struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID            uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:idx_cart_buyer_listing"`
	ListingID          uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_cart_buyer_listing"`
	FarmerID           uuid.UUID `gorm:"column:farmer_id;type:uuid;not null"`
	Quantity           int       `gorm:"column:quantity;not null"`
	UnitPriceSnapCents int       `gorm:"column:unit_price_snap_cents;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
