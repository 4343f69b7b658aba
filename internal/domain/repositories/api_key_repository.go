package repositories

import (
	"context"

	"github.com/google/uuid"
	"nexart.backend/internal/domain/entities"
)

type ApiKeyRepository interface {
	// CreateWithinLimit inserts the key only while the account's active-key
	// count stays below maxKeys. The check and the insert are one statement,
	// so two racing provisions cannot both slip past the limit. Returns
	// KeyLimitReachedError when the guard rejects the insert.
	CreateWithinLimit(ctx context.Context, apiKey *entities.ApiKey, maxKeys int) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error)
	FindByPrefix(ctx context.Context, prefix string) (*entities.ApiKey, error)
	FindByAccountID(ctx context.Context, accountID uuid.UUID) ([]*entities.ApiKey, error)
	CountActive(ctx context.Context, accountID uuid.UUID) (int, error)
	// Revoke marks the key revoked. Revoking an already revoked key is a
	// no-op success.
	Revoke(ctx context.Context, id uuid.UUID) error
}
