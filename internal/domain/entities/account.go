package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// Plan is a named entitlement tier fixing MonthlyLimit and MaxKeys
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanProPlus    Plan = "pro_plus"
	PlanEnterprise Plan = "enterprise"
)

// AccountStatus is the billing standing of an account
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusPastDue   AccountStatus = "past_due"
	AccountStatusCanceling AccountStatus = "canceling"
	AccountStatusCanceled  AccountStatus = "canceled"
)

// Account is the billable entity owning plan, quota, and API keys.
// MonthlyLimit and MaxKeys are always derived from Plan; they are stored
// denormalized so quota checks are a single read, but only the plan catalog
// may set them.
type Account struct {
	ID                    uuid.UUID     `json:"id"`
	UserID                uuid.UUID     `json:"userId"`
	BillingCustomerID     null.String   `json:"billingCustomerId"`
	BillingSubscriptionID null.String   `json:"billingSubscriptionId"`
	BillingPriceID        null.String   `json:"billingPriceId"`
	Plan                  Plan          `json:"plan"`
	MonthlyLimit          int           `json:"monthlyLimit"`
	MaxKeys               int           `json:"maxKeys"`
	Status                AccountStatus `json:"status"`
	CurrentPeriodEnd      null.Time     `json:"currentPeriodEnd"`
	// BillingUpdatedAt is the provider's clock for the last applied
	// subscription event, used for the strictly-newer-wins rule.
	BillingUpdatedAt null.Time `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// PlanSummary is the dashboard view of an account's entitlement and usage
type PlanSummary struct {
	Plan             Plan          `json:"plan"`
	PlanName         string        `json:"planName"`
	Status           AccountStatus `json:"status"`
	MonthlyLimit     int           `json:"monthlyLimit"`
	Used             int           `json:"used"`
	Remaining        int           `json:"remaining"`
	MaxKeys          int           `json:"maxKeys"`
	KeysUsed         int           `json:"keysUsed"`
	KeysRemaining    int           `json:"keysRemaining"`
	CurrentPeriodEnd *time.Time    `json:"currentPeriodEnd,omitempty"`
}
