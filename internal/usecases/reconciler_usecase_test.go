package usecases_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/volatiletech/null/v8"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/usecases"
)

var testPrices = usecases.PriceTable{
	"price_pro":     entities.PlanPro,
	"price_proplus": entities.PlanProPlus,
}

type reconcilerFixture struct {
	accountRepo *MockAccountRepository
	eventRepo   *MockBillingEventRepository
	uow         *MockUnitOfWork
	uc          *usecases.ReconcilerUsecase
}

func newReconcilerFixture() *reconcilerFixture {
	accountRepo := new(MockAccountRepository)
	eventRepo := new(MockBillingEventRepository)
	uow := new(MockUnitOfWork)
	accountUC := usecases.NewAccountUsecase(accountRepo, new(MockApiKeyRepository), new(MockUsageEventRepository))
	return &reconcilerFixture{
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		uow:         uow,
		uc:          usecases.NewReconcilerUsecase(accountRepo, eventRepo, accountUC, uow, testPrices),
	}
}

func (f *reconcilerFixture) expectTx(ctx context.Context) {
	f.uow.On("Do", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
}

func subEvent(id, eventType string, payload entities.SubscriptionPayload) *entities.BillingEvent {
	data, _ := json.Marshal(payload)
	return &entities.BillingEvent{ID: id, Type: eventType, Created: time.Now().Unix(), Data: data}
}

func billedAccount(customerID, subscriptionID string) *entities.Account {
	a := &entities.Account{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		BillingCustomerID: null.StringFrom(customerID),
		Plan:              entities.PlanFree,
		MonthlyLimit:      100,
		MaxKeys:           2,
		Status:            entities.AccountStatusActive,
		UpdatedAt:         time.Now().UTC().Add(-time.Hour),
	}
	if subscriptionID != "" {
		a.BillingSubscriptionID = null.StringFrom(subscriptionID)
	}
	return a
}

func TestReconciler_DuplicateDeliveryIsAcknowledged(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	event := subEvent("evt_1", entities.BillingEventSubUpdated, entities.SubscriptionPayload{})
	f.eventRepo.On("MarkProcessed", ctx, event).Return(false, nil)

	err := f.uc.Process(ctx, event)

	assert.NoError(t, err)
	f.accountRepo.AssertNotCalled(t, "UpdateWithVersion", mock.Anything, mock.Anything, mock.Anything)
	f.accountRepo.AssertNotCalled(t, "GetByBillingCustomerID", mock.Anything, mock.Anything)
}

func TestReconciler_CheckoutLinksCustomer(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	userID := uuid.New()
	account := &entities.Account{
		ID:           uuid.New(),
		UserID:       userID,
		Plan:         entities.PlanFree,
		MonthlyLimit: 100,
		MaxKeys:      2,
		Status:       entities.AccountStatusActive,
		UpdatedAt:    time.Now().UTC().Add(-time.Hour),
	}
	expected := account.UpdatedAt

	data, _ := json.Marshal(entities.CheckoutPayload{
		CustomerID:     "cus_42",
		SubscriptionID: "sub_42",
		UserID:         userID.String(),
	})
	event := &entities.BillingEvent{ID: "evt_co", Type: entities.BillingEventCheckoutCompleted, Data: data}

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByUserID", ctx, userID).Return(account, nil)
	f.accountRepo.On("UpdateWithVersion", ctx, mock.AnythingOfType("*entities.Account"), expected).
		Run(func(args mock.Arguments) {
			updated := args.Get(1).(*entities.Account)
			assert.Equal(t, "cus_42", updated.BillingCustomerID.String)
			assert.Equal(t, "sub_42", updated.BillingSubscriptionID.String)
		}).Return(nil)

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertExpectations(t)
}

func TestReconciler_SubscriptionUpdatedAppliesPlan(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	account := billedAccount("cus_42", "sub_42")
	expected := account.UpdatedAt
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()

	event := subEvent("evt_2", entities.BillingEventSubUpdated, entities.SubscriptionPayload{
		ID:               "sub_42",
		CustomerID:       "cus_42",
		PriceID:          "price_pro",
		Status:           entities.BillingSubStatusActive,
		CurrentPeriodEnd: periodEnd,
		UpdatedAt:        time.Now().Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)
	f.accountRepo.On("UpdateWithVersion", ctx, mock.AnythingOfType("*entities.Account"), expected).
		Run(func(args mock.Arguments) {
			updated := args.Get(1).(*entities.Account)
			assert.Equal(t, entities.PlanPro, updated.Plan)
			assert.Equal(t, 5000, updated.MonthlyLimit)
			assert.Equal(t, 5, updated.MaxKeys)
			assert.Equal(t, entities.AccountStatusActive, updated.Status)
			assert.Equal(t, time.Unix(periodEnd, 0).UTC(), updated.CurrentPeriodEnd.Time)
		}).Return(nil)

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertExpectations(t)
}

func TestReconciler_CancelAtPeriodEndMarksCanceling(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	account := billedAccount("cus_42", "sub_42")

	event := subEvent("evt_3", entities.BillingEventSubUpdated, entities.SubscriptionPayload{
		ID:                "sub_42",
		CustomerID:        "cus_42",
		PriceID:           "price_pro",
		Status:            entities.BillingSubStatusActive,
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  time.Now().Add(14 * 24 * time.Hour).Unix(),
		UpdatedAt:         time.Now().Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)
	f.accountRepo.On("UpdateWithVersion", ctx, mock.AnythingOfType("*entities.Account"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			updated := args.Get(1).(*entities.Account)
			assert.Equal(t, entities.AccountStatusCanceling, updated.Status)
			// Entitlements stay intact until the period actually ends.
			assert.Equal(t, entities.PlanPro, updated.Plan)
		}).Return(nil)

	assert.NoError(t, f.uc.Process(ctx, event))
}

func TestReconciler_StaleUpdateIsSkipped(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	account := billedAccount("cus_42", "sub_42")
	account.Plan = entities.PlanProPlus
	account.BillingUpdatedAt = null.TimeFrom(time.Now().UTC())

	// Provider clock one hour behind what was already applied.
	event := subEvent("evt_old", entities.BillingEventSubUpdated, entities.SubscriptionPayload{
		ID:         "sub_42",
		CustomerID: "cus_42",
		PriceID:    "price_pro",
		Status:     entities.BillingSubStatusActive,
		UpdatedAt:  time.Now().Add(-time.Hour).Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertNotCalled(t, "UpdateWithVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_ForeignSubscriptionIsSkipped(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	// The account already moved to a newer subscription; a late update for
	// the dead one must not resurrect its entitlements.
	account := billedAccount("cus_42", "sub_new")

	event := subEvent("evt_4", entities.BillingEventSubUpdated, entities.SubscriptionPayload{
		ID:         "sub_old",
		CustomerID: "cus_42",
		PriceID:    "price_proplus",
		Status:     entities.BillingSubStatusActive,
		UpdatedAt:  time.Now().Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertNotCalled(t, "UpdateWithVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_SubscriptionDeletedDowngrades(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	account := billedAccount("cus_42", "sub_42")
	account.Plan = entities.PlanPro
	account.MonthlyLimit = 5000
	account.MaxKeys = 5
	// Deletion applies even when the provider clock looks older than the
	// last applied event; ending a subscription is terminal.
	account.BillingUpdatedAt = null.TimeFrom(time.Now().UTC())

	event := subEvent("evt_del", entities.BillingEventSubDeleted, entities.SubscriptionPayload{
		ID:         "sub_42",
		CustomerID: "cus_42",
		Status:     entities.BillingSubStatusCanceled,
		UpdatedAt:  time.Now().Add(-time.Hour).Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)
	f.accountRepo.On("UpdateWithVersion", ctx, mock.AnythingOfType("*entities.Account"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			updated := args.Get(1).(*entities.Account)
			assert.Equal(t, entities.PlanFree, updated.Plan)
			assert.Equal(t, 100, updated.MonthlyLimit)
			assert.Equal(t, 2, updated.MaxKeys)
			assert.Equal(t, entities.AccountStatusCanceled, updated.Status)
			assert.False(t, updated.BillingSubscriptionID.Valid)
			assert.False(t, updated.CurrentPeriodEnd.Valid)
		}).Return(nil)

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertExpectations(t)
}

func TestReconciler_LateDeletionKeepsNewerFence(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	lastApplied := time.Now().UTC().Truncate(time.Second)
	account := billedAccount("cus_42", "sub_42")
	account.Plan = entities.PlanPro
	account.BillingUpdatedAt = null.TimeFrom(lastApplied)

	event := subEvent("evt_del_late", entities.BillingEventSubDeleted, entities.SubscriptionPayload{
		ID:         "sub_42",
		CustomerID: "cus_42",
		Status:     entities.BillingSubStatusCanceled,
		UpdatedAt:  lastApplied.Add(-time.Hour).Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)
	f.accountRepo.On("UpdateWithVersion", ctx, mock.AnythingOfType("*entities.Account"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			updated := args.Get(1).(*entities.Account)
			assert.Equal(t, entities.AccountStatusCanceled, updated.Status)
			// The downgrade applies, but the clock fence stays at the
			// newer value so an update dated between the two cannot
			// bring the paid plan back.
			assert.True(t, updated.BillingUpdatedAt.Valid)
			assert.Equal(t, lastApplied, updated.BillingUpdatedAt.Time)
		}).Return(nil)

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertExpectations(t)
}

func TestReconciler_InvoiceFailureMarksPastDue(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	account := billedAccount("cus_42", "sub_42")
	account.Plan = entities.PlanPro

	data, _ := json.Marshal(entities.InvoicePayload{CustomerID: "cus_42", SubscriptionID: "sub_42"})
	event := &entities.BillingEvent{ID: "evt_inv", Type: entities.BillingEventInvoicePaymentFail, Data: data}

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)
	f.accountRepo.On("UpdateWithVersion", ctx, mock.AnythingOfType("*entities.Account"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			updated := args.Get(1).(*entities.Account)
			assert.Equal(t, entities.AccountStatusPastDue, updated.Status)
			// Past due does not touch the plan; entitlements survive a
			// failed charge until the provider gives up.
			assert.Equal(t, entities.PlanPro, updated.Plan)
		}).Return(nil)

	assert.NoError(t, f.uc.Process(ctx, event))
}

func TestReconciler_UnknownCustomerIsAcknowledged(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	event := subEvent("evt_5", entities.BillingEventSubUpdated, entities.SubscriptionPayload{
		ID:         "sub_x",
		CustomerID: "cus_unknown",
		PriceID:    "price_pro",
		Status:     entities.BillingSubStatusActive,
		UpdatedAt:  time.Now().Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_unknown").Return(nil, domainerrors.ErrNotFound)

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertNotCalled(t, "UpdateWithVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_UnmappedPriceLeavesAccountUntouched(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	account := billedAccount("cus_42", "sub_42")

	event := subEvent("evt_6", entities.BillingEventSubUpdated, entities.SubscriptionPayload{
		ID:         "sub_42",
		CustomerID: "cus_42",
		PriceID:    "price_not_in_table",
		Status:     entities.BillingSubStatusActive,
		UpdatedAt:  time.Now().Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertNotCalled(t, "UpdateWithVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_UnrecognizedStatusLeavesAccountUntouched(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	account := billedAccount("cus_42", "sub_42")

	event := subEvent("evt_7", entities.BillingEventSubUpdated, entities.SubscriptionPayload{
		ID:         "sub_42",
		CustomerID: "cus_42",
		PriceID:    "price_pro",
		Status:     "paused",
		UpdatedAt:  time.Now().Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertNotCalled(t, "UpdateWithVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_UnhandledEventTypeIsAcknowledged(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	event := &entities.BillingEvent{ID: "evt_7", Type: "customer.updated", Data: json.RawMessage(`{}`)}
	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)

	assert.NoError(t, f.uc.Process(ctx, event))
}

func TestReconciler_MalformedPayloadFailsWithoutClaiming(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	event := &entities.BillingEvent{
		ID:   "evt_bad",
		Type: entities.BillingEventSubUpdated,
		Data: json.RawMessage(`{"id": 12`),
	}
	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)

	err := f.uc.Process(ctx, event)

	// The transaction rolls back, so the idempotency claim is undone and a
	// corrected redelivery can still be applied.
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestReconciler_RetriesOnVersionConflict(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	account := billedAccount("cus_42", "sub_42")

	event := subEvent("evt_8", entities.BillingEventSubUpdated, entities.SubscriptionPayload{
		ID:         "sub_42",
		CustomerID: "cus_42",
		PriceID:    "price_pro",
		Status:     entities.BillingSubStatusActive,
		UpdatedAt:  time.Now().Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)
	f.accountRepo.On("UpdateWithVersion", ctx, mock.AnythingOfType("*entities.Account"), mock.AnythingOfType("time.Time")).
		Return(domainerrors.ErrVersionConflict).Once()
	f.accountRepo.On("UpdateWithVersion", ctx, mock.AnythingOfType("*entities.Account"), mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	assert.NoError(t, f.uc.Process(ctx, event))
	f.accountRepo.AssertExpectations(t)
}

func TestReconciler_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	f.expectTx(ctx)

	account := billedAccount("cus_42", "sub_42")

	event := subEvent("evt_9", entities.BillingEventSubUpdated, entities.SubscriptionPayload{
		ID:         "sub_42",
		CustomerID: "cus_42",
		PriceID:    "price_pro",
		Status:     entities.BillingSubStatusActive,
		UpdatedAt:  time.Now().Unix(),
	})

	f.eventRepo.On("MarkProcessed", ctx, event).Return(true, nil)
	f.accountRepo.On("GetByBillingCustomerID", ctx, "cus_42").Return(account, nil)
	f.accountRepo.On("UpdateWithVersion", ctx, mock.AnythingOfType("*entities.Account"), mock.AnythingOfType("time.Time")).
		Return(domainerrors.ErrVersionConflict)

	err := f.uc.Process(ctx, event)

	// Surfaced as a retryable failure so the provider redelivers.
	assert.ErrorIs(t, err, domainerrors.ErrTransientStore)
}
