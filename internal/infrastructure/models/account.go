package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID                uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	BillingCustomerID     *string   `gorm:"type:varchar(191);index"`
	BillingSubscriptionID *string   `gorm:"type:varchar(191);index"`
	BillingPriceID        *string   `gorm:"type:varchar(191)"`
	Plan                  string    `gorm:"type:varchar(32);not null;default:'free'"`
	MonthlyLimit          int       `gorm:"not null"`
	MaxKeys               int       `gorm:"not null"`
	Status                string    `gorm:"type:varchar(32);not null;default:'active'"`
	CurrentPeriodEnd      *time.Time
	BillingUpdatedAt      *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
