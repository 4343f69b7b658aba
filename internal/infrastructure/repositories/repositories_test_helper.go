package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createAccountTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		billing_customer_id TEXT,
		billing_subscription_id TEXT,
		billing_price_id TEXT,
		plan TEXT NOT NULL,
		monthly_limit INTEGER NOT NULL,
		max_keys INTEGER NOT NULL,
		status TEXT NOT NULL,
		current_period_end DATETIME,
		billing_updated_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createAPIKeyTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE api_keys (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		label TEXT NOT NULL,
		key_prefix TEXT NOT NULL UNIQUE,
		secret_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		revoked_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createUsageEventTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE usage_events (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		key_id TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		error_code TEXT,
		created_at DATETIME
	);`)
}

func createBillingWebhookEventTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE billing_webhook_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		created_at DATETIME
	);`)
}
