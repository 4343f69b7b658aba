package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"nexart.backend/internal/domain/entities"
	"nexart.backend/internal/infrastructure/models"
)

// BillingEventRepository implements durable webhook deduplication
type BillingEventRepository struct {
	db *gorm.DB
}

// NewBillingEventRepository creates a new billing event repository
func NewBillingEventRepository(db *gorm.DB) *BillingEventRepository {
	return &BillingEventRepository{db: db}
}

// MarkProcessed claims the provider event id with an insert that does
// nothing on conflict. Returns false when a prior delivery already claimed
// it, so the caller can acknowledge without reapplying effects.
func (r *BillingEventRepository) MarkProcessed(ctx context.Context, event *entities.BillingEvent) (bool, error) {
	m := &models.BillingWebhookEvent{
		EventID:     event.ID,
		EventType:   event.Type,
		PayloadJSON: string(event.Data),
	}
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(m)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
