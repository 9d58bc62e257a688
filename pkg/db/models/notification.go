package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/isokofarm/isoko-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to recipients.
// The (event_id, recipient_id) unique index keeps fan-out idempotent even
// when the consumer processes a delivery twice.
type Notification struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID   uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;uniqueIndex:idx_notifications_event_recipient"`
	RecipientRole enums.UserRole         `gorm:"column:recipient_role;type:user_role;not null"`
	EventID       uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex:idx_notifications_event_recipient"`
	OrderID       uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	Type          enums.NotificationType `gorm:"type:notification_type;not null"`
	Title         string                 `gorm:"type:text;not null"`
	Message       string                 `gorm:"type:text;not null"`
	ReadAt        *time.Time             `gorm:"type:timestamptz"`
	CreatedAt     time.Time              `gorm:"type:timestamptz;default:now()"`
}
