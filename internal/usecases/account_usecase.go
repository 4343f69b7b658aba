package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/domain/repositories"
	"nexart.backend/pkg/logger"
)

type AccountUsecase struct {
	accountRepo repositories.AccountRepository
	apiKeyRepo  repositories.ApiKeyRepository
	usageRepo   repositories.UsageEventRepository
}

func NewAccountUsecase(
	accountRepo repositories.AccountRepository,
	apiKeyRepo repositories.ApiKeyRepository,
	usageRepo repositories.UsageEventRepository,
) *AccountUsecase {
	return &AccountUsecase{
		accountRepo: accountRepo,
		apiKeyRepo:  apiKeyRepo,
		usageRepo:   usageRepo,
	}
}

// EnsureForUser returns the user's account, provisioning a free-tier
// account on first touch. Two concurrent first touches resolve to the same
// row: the loser of the insert race re-reads.
func (u *AccountUsecase) EnsureForUser(ctx context.Context, userID uuid.UUID) (*entities.Account, error) {
	account, err := u.accountRepo.GetByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	spec, _ := PlanEntitlements(entities.PlanFree)
	now := time.Now().UTC()
	account = &entities.Account{
		ID:           uuid.New(),
		UserID:       userID,
		Plan:         entities.PlanFree,
		MonthlyLimit: spec.MonthlyLimit,
		MaxKeys:      spec.MaxKeys,
		Status:       entities.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			logger.Debug(ctx, "account already provisioned, re-reading",
				zap.String("user_id", userID.String()))
			return u.accountRepo.GetByUserID(ctx, userID)
		}
		return nil, err
	}

	return account, nil
}

// PlanSummary assembles the dashboard view of plan, usage, and key slots
// for the current calendar month.
func (u *AccountUsecase) PlanSummary(ctx context.Context, userID uuid.UUID) (*entities.PlanSummary, error) {
	account, err := u.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	from, to := monthWindow(time.Now())
	used, err := u.usageRepo.CountBilledInWindow(ctx, account.ID, from, to)
	if err != nil {
		return nil, domainerrors.TransientStore(err)
	}

	keysUsed, err := u.apiKeyRepo.CountActive(ctx, account.ID)
	if err != nil {
		return nil, domainerrors.TransientStore(err)
	}

	remaining := account.MonthlyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	keysRemaining := account.MaxKeys - keysUsed
	if keysRemaining < 0 {
		keysRemaining = 0
	}

	summary := &entities.PlanSummary{
		Plan:          account.Plan,
		Status:        account.Status,
		MonthlyLimit:  account.MonthlyLimit,
		Used:          used,
		Remaining:     remaining,
		MaxKeys:       account.MaxKeys,
		KeysUsed:      keysUsed,
		KeysRemaining: keysRemaining,
	}
	if spec, ok := PlanEntitlements(account.Plan); ok {
		summary.PlanName = spec.Name
	}
	if account.CurrentPeriodEnd.Valid {
		end := account.CurrentPeriodEnd.Time
		summary.CurrentPeriodEnd = &end
	}
	return summary, nil
}
