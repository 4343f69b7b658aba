package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/domain/repositories"
	"nexart.backend/pkg/logger"
	"nexart.backend/pkg/metrics"
)

// Outcomes recorded per webhook delivery.
const (
	outcomeApplied   = "applied"
	outcomeDuplicate = "duplicate"
	outcomeSkipped   = "skipped"
	outcomeError     = "error"
)

const reconcileMaxAttempts = 3

// EventDedupe is an optional fast-path cache in front of the durable
// idempotency table. It must only remember fully processed events.
type EventDedupe interface {
	Seen(ctx context.Context, eventID string) bool
	MarkSeen(ctx context.Context, eventID string)
}

// ReconcilerUsecase folds billing provider webhook events into account
// entitlement state. Deliveries may arrive duplicated, reordered, or
// delayed; every path below has to converge on the same final state
// regardless.
type ReconcilerUsecase struct {
	accountRepo      repositories.AccountRepository
	billingEventRepo repositories.BillingEventRepository
	accountUsecase   *AccountUsecase
	uow              repositories.UnitOfWork
	prices           PriceTable
	dedupe           EventDedupe
}

// WithDedupe installs the fast-path duplicate cache.
func (u *ReconcilerUsecase) WithDedupe(cache EventDedupe) *ReconcilerUsecase {
	u.dedupe = cache
	return u
}

func NewReconcilerUsecase(
	accountRepo repositories.AccountRepository,
	billingEventRepo repositories.BillingEventRepository,
	accountUsecase *AccountUsecase,
	uow repositories.UnitOfWork,
	prices PriceTable,
) *ReconcilerUsecase {
	return &ReconcilerUsecase{
		accountRepo:      accountRepo,
		billingEventRepo: billingEventRepo,
		accountUsecase:   accountUsecase,
		uow:              uow,
		prices:           prices,
	}
}

// Process applies one verified webhook event. The idempotency claim and the
// account mutation commit in the same transaction, so a crash between them
// cannot strand the event as "processed but never applied". On a version
// conflict the whole transaction, claim included, is retried.
func (u *ReconcilerUsecase) Process(ctx context.Context, event *entities.BillingEvent) error {
	if u.dedupe != nil && u.dedupe.Seen(ctx, event.ID) {
		metrics.WebhookEvents.WithLabelValues(event.Type, outcomeDuplicate).Inc()
		return nil
	}

	outcome, err := u.process(ctx, event)
	metrics.WebhookEvents.WithLabelValues(event.Type, outcome).Inc()
	if err == nil && u.dedupe != nil {
		u.dedupe.MarkSeen(ctx, event.ID)
	}
	return err
}

func (u *ReconcilerUsecase) process(ctx context.Context, event *entities.BillingEvent) (string, error) {
	var outcome string

	for attempt := 1; attempt <= reconcileMaxAttempts; attempt++ {
		err := u.uow.Do(ctx, func(txCtx context.Context) error {
			claimed, err := u.billingEventRepo.MarkProcessed(txCtx, event)
			if err != nil {
				return domainerrors.TransientStore(err)
			}
			if !claimed {
				outcome = outcomeDuplicate
				logger.Debug(txCtx, "duplicate webhook delivery",
					zap.String("event_id", event.ID),
					zap.String("event_type", event.Type))
				return nil
			}

			o, err := u.apply(txCtx, event)
			outcome = o
			return err
		})
		if err == nil {
			return outcome, nil
		}
		if errors.Is(err, domainerrors.ErrVersionConflict) {
			logger.Warn(ctx, "reconcile conflict, retrying",
				zap.String("event_id", event.ID),
				zap.Int("attempt", attempt))
			continue
		}
		return outcomeError, err
	}

	return outcomeError, domainerrors.TransientStore(
		fmt.Errorf("event %s: %w", event.ID, domainerrors.ErrVersionConflict))
}

func (u *ReconcilerUsecase) apply(ctx context.Context, event *entities.BillingEvent) (string, error) {
	switch event.Type {
	case entities.BillingEventCheckoutCompleted:
		return u.applyCheckout(ctx, event)
	case entities.BillingEventSubCreated, entities.BillingEventSubUpdated:
		return u.applySubscription(ctx, event)
	case entities.BillingEventSubDeleted:
		return u.applySubscriptionDeleted(ctx, event)
	case entities.BillingEventInvoicePaymentFail:
		return u.applyInvoiceFailure(ctx, event)
	default:
		logger.Debug(ctx, "ignoring unhandled webhook event type",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
		return outcomeSkipped, nil
	}
}

// applyCheckout links the billing customer and subscription to the account
// named in the checkout metadata. The linkage is last-writer-wins: a user
// who somehow completes two checkouts ends up attached to the later one,
// and the subscription events sort out the entitlements.
func (u *ReconcilerUsecase) applyCheckout(ctx context.Context, event *entities.BillingEvent) (string, error) {
	var payload entities.CheckoutPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return outcomeError, domainerrors.BadRequest("malformed checkout payload")
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil || payload.CustomerID == "" {
		logger.Warn(ctx, "checkout event without usable metadata",
			zap.String("event_id", event.ID))
		return outcomeSkipped, nil
	}

	account, err := u.accountUsecase.EnsureForUser(ctx, userID)
	if err != nil {
		return outcomeError, err
	}

	expected := account.UpdatedAt
	account.BillingCustomerID = null.StringFrom(payload.CustomerID)
	if payload.SubscriptionID != "" {
		account.BillingSubscriptionID = null.StringFrom(payload.SubscriptionID)
	}
	if err := u.accountRepo.UpdateWithVersion(ctx, account, expected); err != nil {
		return outcomeError, err
	}

	logger.Info(ctx, "billing customer linked",
		zap.String("account_id", account.ID.String()),
		zap.String("customer_id", payload.CustomerID))
	return outcomeApplied, nil
}

// applySubscription folds a created or updated event into the account.
// Two guards keep out-of-order deliveries harmless: the event must concern
// the account's current subscription (or the account must not have one
// yet), and the provider's update clock must be strictly newer than the
// last applied one.
func (u *ReconcilerUsecase) applySubscription(ctx context.Context, event *entities.BillingEvent) (string, error) {
	var payload entities.SubscriptionPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return outcomeError, domainerrors.BadRequest("malformed subscription payload")
	}

	account, skip, err := u.accountForCustomer(ctx, event, payload.CustomerID)
	if err != nil {
		return outcomeError, err
	}
	if skip {
		return outcomeSkipped, nil
	}

	if account.BillingSubscriptionID.Valid && account.BillingSubscriptionID.String != payload.ID {
		logger.Info(ctx, "skipping event for foreign subscription",
			zap.String("event_id", event.ID),
			zap.String("subscription_id", payload.ID))
		return outcomeSkipped, nil
	}
	if account.BillingUpdatedAt.Valid && !payload.UpdatedTime().After(account.BillingUpdatedAt.Time) {
		logger.Info(ctx, "skipping stale subscription event",
			zap.String("event_id", event.ID),
			zap.Time("event_updated", payload.UpdatedTime()),
			zap.Time("applied_updated", account.BillingUpdatedAt.Time))
		return outcomeSkipped, nil
	}

	plan, spec, ok := u.prices.Resolve(payload.PriceID)
	if !ok {
		logger.Error(ctx, "unmapped billing price, leaving account untouched",
			zap.String("event_id", event.ID),
			zap.String("price_id", payload.PriceID),
			zap.Error(domainerrors.ErrUnmappedPrice))
		return outcomeSkipped, nil
	}

	status, ok := subscriptionStatus(&payload)
	if !ok {
		logger.Error(ctx, "unrecognized subscription status, leaving account untouched",
			zap.String("event_id", event.ID),
			zap.String("status", payload.Status))
		return outcomeSkipped, nil
	}

	expected := account.UpdatedAt
	account.BillingSubscriptionID = null.StringFrom(payload.ID)
	account.BillingPriceID = null.StringFrom(payload.PriceID)
	account.Plan = plan
	account.MonthlyLimit = spec.MonthlyLimit
	account.MaxKeys = spec.MaxKeys
	account.Status = status
	if end := payload.PeriodEnd(); !end.IsZero() {
		account.CurrentPeriodEnd = null.TimeFrom(end)
	}
	account.BillingUpdatedAt = null.TimeFrom(payload.UpdatedTime())

	if err := u.accountRepo.UpdateWithVersion(ctx, account, expected); err != nil {
		return outcomeError, err
	}

	logger.Info(ctx, "subscription reconciled",
		zap.String("account_id", account.ID.String()),
		zap.String("plan", string(plan)),
		zap.String("status", string(account.Status)))
	return outcomeApplied, nil
}

// applySubscriptionDeleted downgrades the account to the free tier.
// Deletion is terminal for the subscription it names, so it applies without
// the newer-wins clock check; only a deletion of some other subscription is
// ignored.
func (u *ReconcilerUsecase) applySubscriptionDeleted(ctx context.Context, event *entities.BillingEvent) (string, error) {
	var payload entities.SubscriptionPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return outcomeError, domainerrors.BadRequest("malformed subscription payload")
	}

	account, skip, err := u.accountForCustomer(ctx, event, payload.CustomerID)
	if err != nil {
		return outcomeError, err
	}
	if skip {
		return outcomeSkipped, nil
	}

	if account.BillingSubscriptionID.Valid && account.BillingSubscriptionID.String != payload.ID {
		logger.Info(ctx, "skipping deletion of foreign subscription",
			zap.String("event_id", event.ID),
			zap.String("subscription_id", payload.ID))
		return outcomeSkipped, nil
	}

	spec, _ := PlanEntitlements(entities.PlanFree)
	expected := account.UpdatedAt
	account.Plan = entities.PlanFree
	account.MonthlyLimit = spec.MonthlyLimit
	account.MaxKeys = spec.MaxKeys
	account.Status = entities.AccountStatusCanceled
	account.BillingSubscriptionID = null.String{}
	account.BillingPriceID = null.String{}
	account.CurrentPeriodEnd = null.Time{}
	// The fence only moves forward. A deletion delivered late must not
	// drag it back, or a stale update between the two clocks could
	// resurrect the paid plan.
	if t := payload.UpdatedTime(); !t.IsZero() &&
		(!account.BillingUpdatedAt.Valid || t.After(account.BillingUpdatedAt.Time)) {
		account.BillingUpdatedAt = null.TimeFrom(t)
	}

	if err := u.accountRepo.UpdateWithVersion(ctx, account, expected); err != nil {
		return outcomeError, err
	}

	logger.Info(ctx, "subscription ended, account downgraded",
		zap.String("account_id", account.ID.String()))
	return outcomeApplied, nil
}

// applyInvoiceFailure flags the account past_due. The provider keeps
// retrying the charge; a later subscription.updated either restores active
// or a deletion ends the subscription.
func (u *ReconcilerUsecase) applyInvoiceFailure(ctx context.Context, event *entities.BillingEvent) (string, error) {
	var payload entities.InvoicePayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return outcomeError, domainerrors.BadRequest("malformed invoice payload")
	}

	account, skip, err := u.accountForCustomer(ctx, event, payload.CustomerID)
	if err != nil {
		return outcomeError, err
	}
	if skip {
		return outcomeSkipped, nil
	}

	if payload.SubscriptionID != "" &&
		account.BillingSubscriptionID.Valid &&
		account.BillingSubscriptionID.String != payload.SubscriptionID {
		return outcomeSkipped, nil
	}
	if account.Status == entities.AccountStatusCanceled {
		return outcomeSkipped, nil
	}

	expected := account.UpdatedAt
	account.Status = entities.AccountStatusPastDue
	if err := u.accountRepo.UpdateWithVersion(ctx, account, expected); err != nil {
		return outcomeError, err
	}

	logger.Warn(ctx, "payment failed, account past due",
		zap.String("account_id", account.ID.String()))
	return outcomeApplied, nil
}

// accountForCustomer resolves the billing customer id to an account. An
// unknown customer is acknowledged and logged rather than erred: failing
// the delivery would only make the provider redeliver an event this system
// can never match.
func (u *ReconcilerUsecase) accountForCustomer(ctx context.Context, event *entities.BillingEvent, customerID string) (*entities.Account, bool, error) {
	if customerID == "" {
		logger.Warn(ctx, "webhook event without customer id",
			zap.String("event_id", event.ID))
		return nil, true, nil
	}
	account, err := u.accountRepo.GetByBillingCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "webhook event for unknown billing customer",
				zap.String("event_id", event.ID),
				zap.String("customer_id", customerID))
			return nil, true, nil
		}
		return nil, false, err
	}
	return account, false, nil
}

// subscriptionStatus maps the provider's subscription standing onto the
// account's. A status this mapping does not know is not granted anything;
// the caller skips the event, the same way an unmapped price is skipped.
func subscriptionStatus(p *entities.SubscriptionPayload) (entities.AccountStatus, bool) {
	switch p.Status {
	case entities.BillingSubStatusActive, entities.BillingSubStatusTrialing:
		if p.CancelAtPeriodEnd {
			if end := p.PeriodEnd(); !end.IsZero() && end.After(time.Now().UTC()) {
				return entities.AccountStatusCanceling, true
			}
		}
		return entities.AccountStatusActive, true
	case entities.BillingSubStatusPastDue, entities.BillingSubStatusUnpaid:
		return entities.AccountStatusPastDue, true
	case entities.BillingSubStatusCanceled, entities.BillingSubStatusExpired:
		return entities.AccountStatusCanceled, true
	default:
		return "", false
	}
}
