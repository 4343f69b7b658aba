package models

import (
	"time"

	"github.com/google/uuid"
)

type UsageEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	AccountID  uuid.UUID `gorm:"type:uuid;not null;index:idx_usage_events_account_created,priority:1"`
	KeyID      uuid.UUID `gorm:"type:uuid;not null;index"`
	StatusCode int       `gorm:"not null"`
	DurationMs int64     `gorm:"not null"`
	ErrorCode  *string   `gorm:"type:varchar(64)"`
	CreatedAt  time.Time `gorm:"index:idx_usage_events_account_created,priority:2"`
}
