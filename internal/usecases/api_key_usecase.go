package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/domain/repositories"
	"nexart.backend/pkg/crypto"
	"nexart.backend/pkg/logger"
	"nexart.backend/pkg/metrics"
)

const (
	// Token shape: nx_live_<prefix>.<secret>. The prefix is stored in
	// clear for lookup; the secret only survives as an argon2id hash.
	tokenEnvPrefix = "nx_live_"
	prefixBytes    = 6
	secretBytes    = 24
)

type ApiKeyUsecase struct {
	apiKeyRepo  repositories.ApiKeyRepository
	accountRepo repositories.AccountRepository
	uow         repositories.UnitOfWork
}

func NewApiKeyUsecase(
	apiKeyRepo repositories.ApiKeyRepository,
	accountRepo repositories.AccountRepository,
	uow repositories.UnitOfWork,
) *ApiKeyUsecase {
	return &ApiKeyUsecase{
		apiKeyRepo:  apiKeyRepo,
		accountRepo: accountRepo,
		uow:         uow,
	}
}

// Provision mints a new key for the account. The active-key ceiling is
// enforced inside the insert itself, so concurrent provisions at the limit
// cannot both succeed. The raw token in the response is shown exactly once.
func (u *ApiKeyUsecase) Provision(ctx context.Context, account *entities.Account, input *entities.CreateApiKeyInput) (*entities.CreateApiKeyResponse, error) {
	if strings.TrimSpace(input.Label) == "" {
		return nil, domainerrors.BadRequest("label is required")
	}

	raw, key, err := mintKey(account.ID, input.Label)
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}

	if err := u.apiKeyRepo.CreateWithinLimit(ctx, key, account.MaxKeys); err != nil {
		return nil, err
	}

	logger.Info(ctx, "api key provisioned",
		zap.String("account_id", account.ID.String()),
		zap.String("key_id", key.ID.String()))

	return &entities.CreateApiKeyResponse{
		ID:        key.ID,
		Label:     key.Label,
		RawSecret: raw,
		CreatedAt: key.CreatedAt,
	}, nil
}

// Rotate revokes the key and mints its replacement in one transaction.
// Either both happen or neither does; a crash mid-rotation never leaves the
// account down a key slot.
func (u *ApiKeyUsecase) Rotate(ctx context.Context, account *entities.Account, keyID uuid.UUID) (*entities.CreateApiKeyResponse, error) {
	old, err := u.ownedKey(ctx, account.ID, keyID)
	if err != nil {
		return nil, err
	}
	if old.Status != entities.ApiKeyStatusActive {
		return nil, domainerrors.BadRequest("cannot rotate a revoked key")
	}

	raw, replacement, err := mintKey(account.ID, old.Label)
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.apiKeyRepo.Revoke(txCtx, old.ID); err != nil {
			return err
		}
		// The revoke above freed a slot inside this transaction, so the
		// guarded insert admits the replacement even at the ceiling.
		return u.apiKeyRepo.CreateWithinLimit(txCtx, replacement, account.MaxKeys)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "api key rotated",
		zap.String("account_id", account.ID.String()),
		zap.String("old_key_id", old.ID.String()),
		zap.String("new_key_id", replacement.ID.String()))

	return &entities.CreateApiKeyResponse{
		ID:        replacement.ID,
		Label:     replacement.Label,
		RawSecret: raw,
		CreatedAt: replacement.CreatedAt,
	}, nil
}

// Revoke retires the key. Revoking an already revoked key succeeds; the
// outcome the caller asked for already holds.
func (u *ApiKeyUsecase) Revoke(ctx context.Context, account *entities.Account, keyID uuid.UUID) error {
	key, err := u.ownedKey(ctx, account.ID, keyID)
	if err != nil {
		return err
	}
	if key.Status == entities.ApiKeyStatusRevoked {
		return nil
	}
	return u.apiKeyRepo.Revoke(ctx, key.ID)
}

// List returns the account's keys without any secret material.
func (u *ApiKeyUsecase) List(ctx context.Context, accountID uuid.UUID) ([]*entities.ApiKeyListItem, error) {
	keys, err := u.apiKeyRepo.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	items := make([]*entities.ApiKeyListItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, &entities.ApiKeyListItem{
			ID:        k.ID,
			Label:     k.Label,
			Status:    k.Status,
			CreatedAt: k.CreatedAt,
		})
	}
	return items, nil
}

// Verify resolves a presented raw token to its owning account. A revoked
// key whose secret still matches is rejected exactly like a wrong secret:
// 401, no hint that the key ever existed.
func (u *ApiKeyUsecase) Verify(ctx context.Context, rawToken string) (*entities.Account, *entities.ApiKey, error) {
	prefix, secret, ok := splitToken(rawToken)
	if !ok {
		metrics.KeyVerifications.WithLabelValues("invalid").Inc()
		return nil, nil, domainerrors.Unauthorized("invalid api key")
	}

	key, err := u.apiKeyRepo.FindByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			metrics.KeyVerifications.WithLabelValues("invalid").Inc()
			return nil, nil, domainerrors.Unauthorized("invalid api key")
		}
		return nil, nil, err
	}

	match, err := crypto.VerifySecret(secret, key.SecretHash)
	if err != nil {
		return nil, nil, domainerrors.InternalError(err)
	}
	if !match {
		metrics.KeyVerifications.WithLabelValues("invalid").Inc()
		return nil, nil, domainerrors.Unauthorized("invalid api key")
	}
	if key.Status != entities.ApiKeyStatusActive {
		metrics.KeyVerifications.WithLabelValues("revoked").Inc()
		return nil, nil, domainerrors.Unauthorized("invalid api key")
	}

	account, err := u.accountRepo.GetByID(ctx, key.AccountID)
	if err != nil {
		return nil, nil, err
	}

	metrics.KeyVerifications.WithLabelValues("ok").Inc()
	return account, key, nil
}

// ownedKey fetches the key and checks ownership. A key owned by someone
// else reads as not found, so key ids cannot be probed across accounts.
func (u *ApiKeyUsecase) ownedKey(ctx context.Context, accountID, keyID uuid.UUID) (*entities.ApiKey, error) {
	key, err := u.apiKeyRepo.FindByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key.AccountID != accountID {
		return nil, domainerrors.NotFound("api key not found")
	}
	return key, nil
}

func mintKey(accountID uuid.UUID, label string) (string, *entities.ApiKey, error) {
	prefix, err := crypto.GenerateRandomToken(prefixBytes)
	if err != nil {
		return "", nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := crypto.GenerateRandomToken(secretBytes)
	if err != nil {
		return "", nil, fmt.Errorf("generate secret: %w", err)
	}
	hash, err := crypto.HashSecret(secret)
	if err != nil {
		return "", nil, fmt.Errorf("hash secret: %w", err)
	}

	now := time.Now().UTC()
	key := &entities.ApiKey{
		ID:         uuid.New(),
		AccountID:  accountID,
		Label:      label,
		KeyPrefix:  prefix,
		SecretHash: hash,
		Status:     entities.ApiKeyStatusActive,
		CreatedAt:  now,
	}
	return tokenEnvPrefix + prefix + "." + secret, key, nil
}

func splitToken(raw string) (prefix, secret string, ok bool) {
	body, found := strings.CutPrefix(raw, tokenEnvPrefix)
	if !found {
		return "", "", false
	}
	prefix, secret, found = strings.Cut(body, ".")
	if !found || prefix == "" || secret == "" {
		return "", "", false
	}
	return prefix, secret, true
}
