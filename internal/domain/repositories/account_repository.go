package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"nexart.backend/internal/domain/entities"
)

// AccountRepository is the sole access path to account records.
type AccountRepository interface {
	Create(ctx context.Context, account *entities.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Account, error)
	GetByBillingCustomerID(ctx context.Context, customerID string) (*entities.Account, error)
	// UpdateWithVersion writes the full entitlement state of the account as
	// a single conditional update keyed on the previously read UpdatedAt.
	// Returns ErrVersionConflict when another writer got there first.
	UpdateWithVersion(ctx context.Context, account *entities.Account, expected time.Time) error
}
