package models

import (
	"time"
)

// BillingWebhookEvent stores processed provider event ids so replayed
// deliveries become no-ops.
type BillingWebhookEvent struct {
	ID          uint      `gorm:"primaryKey"`
	EventID     string    `gorm:"type:varchar(191);uniqueIndex;not null"`
	EventType   string    `gorm:"type:varchar(100);not null;index"`
	PayloadJSON string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"index"`
}

func (BillingWebhookEvent) TableName() string {
	return "billing_webhook_events"
}
