package usecases

import (
	"context"
	"time"

	"go.uber.org/zap"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/domain/repositories"
	"nexart.backend/pkg/logger"
	"nexart.backend/pkg/metrics"
)

type QuotaUsecase struct {
	usageRepo repositories.UsageEventRepository
}

func NewQuotaUsecase(usageRepo repositories.UsageEventRepository) *QuotaUsecase {
	return &QuotaUsecase{usageRepo: usageRepo}
}

// Admit decides whether the account may run one more metered execution in
// the current calendar month. A ledger read failure is surfaced as a
// transient store error, never converted into a quota rejection: the caller
// must be able to tell "over quota" from "cannot tell right now".
func (u *QuotaUsecase) Admit(ctx context.Context, account *entities.Account) error {
	from, to := monthWindow(time.Now())
	used, err := u.usageRepo.CountBilledInWindow(ctx, account.ID, from, to)
	if err != nil {
		metrics.QuotaDecisions.WithLabelValues("error").Inc()
		return domainerrors.TransientStore(err)
	}

	if used >= account.MonthlyLimit {
		metrics.QuotaDecisions.WithLabelValues("exceeded").Inc()
		logger.Info(ctx, "quota exceeded",
			zap.String("account_id", account.ID.String()),
			zap.Int("used", used),
			zap.Int("limit", account.MonthlyLimit))
		return &domainerrors.QuotaExceededError{
			Limit:     account.MonthlyLimit,
			Used:      used,
			Remaining: 0,
		}
	}

	metrics.QuotaDecisions.WithLabelValues("admitted").Inc()
	return nil
}

// RecordUsage appends one execution to the ledger. The event is written for
// every outcome; only 2xx rows consume quota when counted.
func (u *QuotaUsecase) RecordUsage(ctx context.Context, event *entities.UsageEvent) error {
	if err := u.usageRepo.Append(ctx, event); err != nil {
		logger.Error(ctx, "usage event append failed",
			zap.String("account_id", event.AccountID.String()),
			zap.Error(err))
		return err
	}
	return nil
}

// monthWindow returns the UTC calendar month [from, to) containing now.
// AddDate handles December rollover.
func monthWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
