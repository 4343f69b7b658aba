package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/infrastructure/models"
)

// AccountRepository implements account data operations
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account. A duplicate user_id means another request
// provisioned the account first; the caller re-reads instead of failing.
func (r *AccountRepository) Create(ctx context.Context, account *entities.Account) error {
	m := toAccountModel(account)
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	account.ID = m.ID
	account.CreatedAt = m.CreatedAt
	account.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID gets an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

// GetByUserID gets the account owned by a user identity
func (r *AccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Account, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

// GetByBillingCustomerID gets the account linked to a billing customer
func (r *AccountRepository) GetByBillingCustomerID(ctx context.Context, customerID string) (*entities.Account, error) {
	return r.findOne(ctx, "billing_customer_id = ?", customerID)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg interface{}) (*entities.Account, error) {
	var m models.Account
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toAccountEntity(&m), nil
}

// UpdateWithVersion writes the account's entitlement state as one
// conditional update keyed on the previously read updated_at. Zero rows
// affected means another writer committed in between; the caller re-reads
// and retries.
func (r *AccountRepository) UpdateWithVersion(ctx context.Context, account *entities.Account, expected time.Time) error {
	now := time.Now().UTC()
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND updated_at = ?", account.ID, expected).
		Updates(map[string]interface{}{
			"billing_customer_id":     account.BillingCustomerID.Ptr(),
			"billing_subscription_id": account.BillingSubscriptionID.Ptr(),
			"billing_price_id":        account.BillingPriceID.Ptr(),
			"plan":                    string(account.Plan),
			"monthly_limit":           account.MonthlyLimit,
			"max_keys":                account.MaxKeys,
			"status":                  string(account.Status),
			"current_period_end":      account.CurrentPeriodEnd.Ptr(),
			"billing_updated_at":      account.BillingUpdatedAt.Ptr(),
			"updated_at":              now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVersionConflict
	}
	account.UpdatedAt = now
	return nil
}

func toAccountModel(e *entities.Account) *models.Account {
	return &models.Account{
		ID:                    e.ID,
		UserID:                e.UserID,
		BillingCustomerID:     e.BillingCustomerID.Ptr(),
		BillingSubscriptionID: e.BillingSubscriptionID.Ptr(),
		BillingPriceID:        e.BillingPriceID.Ptr(),
		Plan:                  string(e.Plan),
		MonthlyLimit:          e.MonthlyLimit,
		MaxKeys:               e.MaxKeys,
		Status:                string(e.Status),
		CurrentPeriodEnd:      e.CurrentPeriodEnd.Ptr(),
		BillingUpdatedAt:      e.BillingUpdatedAt.Ptr(),
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

func toAccountEntity(m *models.Account) *entities.Account {
	return &entities.Account{
		ID:                    m.ID,
		UserID:                m.UserID,
		BillingCustomerID:     null.StringFromPtr(m.BillingCustomerID),
		BillingSubscriptionID: null.StringFromPtr(m.BillingSubscriptionID),
		BillingPriceID:        null.StringFromPtr(m.BillingPriceID),
		Plan:                  entities.Plan(m.Plan),
		MonthlyLimit:          m.MonthlyLimit,
		MaxKeys:               m.MaxKeys,
		Status:                entities.AccountStatus(m.Status),
		CurrentPeriodEnd:      null.TimeFromPtr(m.CurrentPeriodEnd),
		BillingUpdatedAt:      null.TimeFromPtr(m.BillingUpdatedAt),
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}
