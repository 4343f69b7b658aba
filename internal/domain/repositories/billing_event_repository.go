package repositories

import (
	"context"

	"nexart.backend/internal/domain/entities"
)

// BillingEventRepository records processed webhook deliveries for
// idempotency. MarkProcessed inserts the provider event id exactly once.
type BillingEventRepository interface {
	// MarkProcessed returns (false, nil) when the event id was already
	// recorded, (true, nil) when this call claimed it.
	MarkProcessed(ctx context.Context, event *entities.BillingEvent) (bool, error)
}
