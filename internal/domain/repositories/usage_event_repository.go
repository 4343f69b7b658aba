package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"nexart.backend/internal/domain/entities"
)

// UsageEventRepository is append-only; there is deliberately no update or
// delete operation.
type UsageEventRepository interface {
	Append(ctx context.Context, event *entities.UsageEvent) error
	// CountBilledInWindow counts events with a 2xx status for the account
	// in [from, to).
	CountBilledInWindow(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error)
}
