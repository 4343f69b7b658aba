package entities

import (
	"encoding/json"
	"time"
)

// Billing provider event types the reconciler understands. Anything else
// is acknowledged without mutation.
const (
	BillingEventCheckoutCompleted  = "checkout.completed"
	BillingEventSubCreated         = "subscription.created"
	BillingEventSubUpdated         = "subscription.updated"
	BillingEventSubDeleted         = "subscription.deleted"
	BillingEventInvoicePaymentFail = "invoice.payment_failed"
)

// Provider-side subscription statuses as they appear in payloads.
const (
	BillingSubStatusActive   = "active"
	BillingSubStatusTrialing = "trialing"
	BillingSubStatusPastDue  = "past_due"
	BillingSubStatusUnpaid   = "unpaid"
	BillingSubStatusCanceled = "canceled"
	BillingSubStatusExpired  = "expired"
)

// BillingEvent is the provider's webhook envelope.
type BillingEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// CheckoutPayload is the data object of checkout.completed. The user id is
// round-tripped through checkout metadata; later events carry only the
// customer id.
type CheckoutPayload struct {
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	UserID         string `json:"userId"`
}

// SubscriptionPayload is the data object of subscription.* events.
// UpdatedAt is the provider's recorded update time for the subscription
// resource, not the delivery time.
type SubscriptionPayload struct {
	ID                string `json:"id"`
	CustomerID        string `json:"customer"`
	PriceID           string `json:"price"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  int64  `json:"currentPeriodEnd"`
	UpdatedAt         int64  `json:"updated"`
}

// InvoicePayload is the data object of invoice.* events.
type InvoicePayload struct {
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
}

// PeriodEnd converts the payload's unix period end, zero when absent.
func (p *SubscriptionPayload) PeriodEnd() time.Time {
	if p.CurrentPeriodEnd == 0 {
		return time.Time{}
	}
	return time.Unix(p.CurrentPeriodEnd, 0).UTC()
}

// UpdatedTime converts the payload's provider update clock, zero when absent.
func (p *SubscriptionPayload) UpdatedTime() time.Time {
	if p.UpdatedAt == 0 {
		return time.Time{}
	}
	return time.Unix(p.UpdatedAt, 0).UTC()
}
