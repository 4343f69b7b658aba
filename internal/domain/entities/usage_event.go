package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// UsageEvent records one metered execution attempt. The ledger is
// append-only; only 2xx events count toward quota consumption.
type UsageEvent struct {
	ID         uuid.UUID   `json:"id"`
	AccountID  uuid.UUID   `json:"accountId"`
	KeyID      uuid.UUID   `json:"keyId"`
	StatusCode int         `json:"statusCode"`
	DurationMs int64       `json:"durationMs"`
	ErrorCode  null.String `json:"errorCode"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Billed reports whether the event consumes quota.
func (e *UsageEvent) Billed() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}
