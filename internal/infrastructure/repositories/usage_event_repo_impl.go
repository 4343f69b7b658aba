package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"nexart.backend/internal/domain/entities"
	"nexart.backend/internal/infrastructure/models"
	"nexart.backend/pkg/utils"
)

// UsageEventRepository implements the append-only usage ledger
type UsageEventRepository struct {
	db *gorm.DB
}

// NewUsageEventRepository creates a new usage event repository
func NewUsageEventRepository(db *gorm.DB) *UsageEventRepository {
	return &UsageEventRepository{db: db}
}

// Append records one metered execution attempt
func (r *UsageEventRepository) Append(ctx context.Context, event *entities.UsageEvent) error {
	if event.ID == uuid.Nil {
		// v7 keeps ledger ids roughly time-ordered
		event.ID = utils.GenerateUUIDv7()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	m := &models.UsageEvent{
		ID:         event.ID,
		AccountID:  event.AccountID,
		KeyID:      event.KeyID,
		StatusCode: event.StatusCode,
		DurationMs: event.DurationMs,
		ErrorCode:  event.ErrorCode.Ptr(),
		CreatedAt:  event.CreatedAt,
	}
	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Create(m).Error
}

// CountBilledInWindow counts 2xx events for the account in [from, to)
func (r *UsageEventRepository) CountBilledInWindow(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error) {
	var total int64
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Model(&models.UsageEvent{}).
		Where("account_id = ? AND status_code >= ? AND status_code < ? AND created_at >= ? AND created_at < ?",
			accountID, 200, 300, from, to).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}
