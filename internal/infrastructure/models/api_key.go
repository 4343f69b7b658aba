package models

import (
	"time"

	"github.com/google/uuid"
)

type ApiKey struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	AccountID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Label      string    `gorm:"type:varchar(100);not null"`
	KeyPrefix  string    `gorm:"type:varchar(20);uniqueIndex;not null"` // public lookup handle
	SecretHash string    `gorm:"type:text;not null"`                    // argon2id, one-way
	Status     string    `gorm:"type:varchar(16);not null;default:'active';index"`
	RevokedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Account    Account `gorm:"foreignKey:AccountID"`
}
