package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Billing  BillingConfig
	Executor ExecutorConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds session token validation settings. Tokens are minted by
// the identity provider; this service only verifies them.
type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// BillingConfig holds the webhook signing secret and the static
// price-to-plan mapping the reconciler uses.
type BillingConfig struct {
	WebhookSecret     string
	ProPriceID        string
	ProPlusPriceID    string
	EnterprisePriceID string
	EventCacheTTL     time.Duration
}

// ExecutorConfig holds the render engine endpoint
type ExecutorConfig struct {
	URL     string
	Timeout time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "nexart"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		Billing: BillingConfig{
			WebhookSecret:     getEnv("BILLING_WEBHOOK_SECRET", ""),
			ProPriceID:        getEnv("PLAN_PRICE_PRO", ""),
			ProPlusPriceID:    getEnv("PLAN_PRICE_PRO_PLUS", ""),
			EnterprisePriceID: getEnv("PLAN_PRICE_ENTERPRISE", ""),
			EventCacheTTL:     getEnvAsDuration("BILLING_EVENT_CACHE_TTL", 24*time.Hour),
		},
		Executor: ExecutorConfig{
			URL:     getEnv("EXECUTOR_URL", "http://localhost:9090"),
			Timeout: getEnvAsDuration("EXECUTOR_TIMEOUT", 120*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
