package usecases

import (
	"context"
	"encoding/json"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"nexart.backend/internal/domain/entities"
	"nexart.backend/pkg/logger"
)

// RenderResult is what the render engine reports for one execution.
type RenderResult struct {
	StatusCode int             `json:"statusCode"`
	Output     json.RawMessage `json:"output,omitempty"`
	ErrorCode  string          `json:"errorCode,omitempty"`
}

// Executor is the external render engine. It reports failures through the
// result's status code; a returned error means the engine was unreachable.
type Executor interface {
	Render(ctx context.Context, spec json.RawMessage) (*RenderResult, error)
}

// RenderUsecase runs one certified render behind the quota gate.
type RenderUsecase struct {
	quota    *QuotaUsecase
	executor Executor
}

func NewRenderUsecase(quota *QuotaUsecase, executor Executor) *RenderUsecase {
	return &RenderUsecase{quota: quota, executor: executor}
}

// Execute admits the request against the account's monthly quota, runs the
// render, and appends exactly one ledger event with the real outcome.
// Rejected attempts never reach the engine and leave no ledger row.
func (u *RenderUsecase) Execute(ctx context.Context, account *entities.Account, key *entities.ApiKey, spec json.RawMessage) (*RenderResult, error) {
	if err := u.quota.Admit(ctx, account); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := u.executor.Render(ctx, spec)
	duration := time.Since(start)

	event := &entities.UsageEvent{
		AccountID:  account.ID,
		KeyID:      key.ID,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		event.StatusCode = 502
		event.ErrorCode = null.StringFrom("engine_unreachable")
	} else {
		event.StatusCode = result.StatusCode
		if result.ErrorCode != "" {
			event.ErrorCode = null.StringFrom(result.ErrorCode)
		}
	}

	if recordErr := u.quota.RecordUsage(ctx, event); recordErr != nil {
		// The render already happened; losing the ledger row under-counts
		// rather than double-charges, so the result still goes back.
		logger.Error(ctx, "failed to record render usage",
			zap.String("account_id", account.ID.String()),
			zap.Error(recordErr))
	}

	if err != nil {
		logger.Error(ctx, "render engine unreachable", zap.Error(err))
		return nil, err
	}
	return result, nil
}
