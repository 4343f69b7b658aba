package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/infrastructure/models"
)

// ApiKeyRepository implements API key data operations
type ApiKeyRepository struct {
	db *gorm.DB
}

// NewApiKeyRepository creates a new API key repository
func NewApiKeyRepository(db *gorm.DB) *ApiKeyRepository {
	return &ApiKeyRepository{db: db}
}

// CreateWithinLimit inserts the key guarded by the account's active-key
// count. Guard and insert are a single statement so concurrent provisions
// for the same account serialize on the database, not on application state.
func (r *ApiKeyRepository) CreateWithinLimit(ctx context.Context, apiKey *entities.ApiKey, maxKeys int) error {
	if apiKey.ID == uuid.Nil {
		apiKey.ID = uuid.New()
	}
	now := time.Now().UTC()
	if apiKey.CreatedAt.IsZero() {
		apiKey.CreatedAt = now
	}

	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Exec(
		`INSERT INTO api_keys (id, account_id, label, key_prefix, secret_hash, status, created_at, updated_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE (SELECT COUNT(*) FROM api_keys WHERE account_id = ? AND status = ?) < ?`,
		apiKey.ID, apiKey.AccountID, apiKey.Label, apiKey.KeyPrefix, apiKey.SecretHash,
		string(entities.ApiKeyStatusActive), apiKey.CreatedAt, now,
		apiKey.AccountID, string(entities.ApiKeyStatusActive), maxKeys,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		used, err := r.CountActive(ctx, apiKey.AccountID)
		if err != nil {
			used = maxKeys
		}
		return &domainerrors.KeyLimitReachedError{Used: used, Max: maxKeys}
	}
	apiKey.Status = entities.ApiKeyStatusActive
	return nil
}

// FindByID gets a key by ID
func (r *ApiKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByPrefix gets a key by its public token prefix
func (r *ApiKeyRepository) FindByPrefix(ctx context.Context, prefix string) (*entities.ApiKey, error) {
	return r.findOne(ctx, "key_prefix = ?", prefix)
}

func (r *ApiKeyRepository) findOne(ctx context.Context, query string, arg interface{}) (*entities.ApiKey, error) {
	var m models.ApiKey
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toApiKeyEntity(&m), nil
}

// FindByAccountID lists all keys owned by an account, newest first
func (r *ApiKeyRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) ([]*entities.ApiKey, error) {
	var ms []models.ApiKey
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	keys := make([]*entities.ApiKey, 0, len(ms))
	for i := range ms {
		keys = append(keys, toApiKeyEntity(&ms[i]))
	}
	return keys, nil
}

// CountActive counts the account's active keys
func (r *ApiKeyRepository) CountActive(ctx context.Context, accountID uuid.UUID) (int, error) {
	var total int64
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Model(&models.ApiKey{}).
		Where("account_id = ? AND status = ?", accountID, string(entities.ApiKeyStatusActive)).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// Revoke marks a key revoked. A key that is already revoked keeps its
// original revoked_at; the update only matches active rows, so replays are
// no-op successes.
func (r *ApiKeyRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.ApiKey{}).
		Where("id = ? AND status = ?", id, string(entities.ApiKeyStatusActive)).
		Updates(map[string]interface{}{
			"status":     string(entities.ApiKeyStatusRevoked),
			"revoked_at": now,
			"updated_at": now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the key does not exist or it is already revoked.
		var count int64
		if err := db.WithContext(ctx).Model(&models.ApiKey{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domainerrors.ErrNotFound
		}
	}
	return nil
}

func toApiKeyEntity(m *models.ApiKey) *entities.ApiKey {
	return &entities.ApiKey{
		ID:         m.ID,
		AccountID:  m.AccountID,
		Label:      m.Label,
		KeyPrefix:  m.KeyPrefix,
		SecretHash: m.SecretHash,
		Status:     entities.ApiKeyStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		RevokedAt:  m.RevokedAt,
	}
}
