package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"nexart.backend/internal/config"
	"nexart.backend/internal/domain/entities"
	"nexart.backend/internal/infrastructure/executor"
	"nexart.backend/internal/infrastructure/repositories"
	"nexart.backend/internal/interfaces/http/handlers"
	"nexart.backend/internal/interfaces/http/middleware"
	"nexart.backend/internal/usecases"
	"nexart.backend/pkg/jwt"
	"nexart.backend/pkg/logger"
	"nexart.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt:    false,
			TranslateError: true,
		})
	}
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := loadCfg()

	// Initialize Logger
	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	// Initialize Redis
	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database using GORM
	dsn := cfg.Database.URL()
	db, err := openDB(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("⚠️ Database not available: %v (endpoints will return errors)", err)
	} else {
		log.Println("✅ Connected to PostgreSQL via GORM")
	}

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	apiKeyRepo := repositories.NewApiKeyRepository(db)
	usageEventRepo := repositories.NewUsageEventRepository(db)
	billingEventRepo := repositories.NewBillingEventRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// Price to plan mapping from configuration
	prices := usecases.PriceTable{}
	if cfg.Billing.ProPriceID != "" {
		prices[cfg.Billing.ProPriceID] = entities.PlanPro
	}
	if cfg.Billing.ProPlusPriceID != "" {
		prices[cfg.Billing.ProPlusPriceID] = entities.PlanProPlus
	}
	if cfg.Billing.EnterprisePriceID != "" {
		prices[cfg.Billing.EnterprisePriceID] = entities.PlanEnterprise
	}

	// Initialize usecases
	accountUsecase := usecases.NewAccountUsecase(accountRepo, apiKeyRepo, usageEventRepo)
	apiKeyUsecase := usecases.NewApiKeyUsecase(apiKeyRepo, accountRepo, uow)
	quotaUsecase := usecases.NewQuotaUsecase(usageEventRepo)
	renderExecutor := executor.NewHTTPExecutor(cfg.Executor.URL, cfg.Executor.Timeout)
	renderUsecase := usecases.NewRenderUsecase(quotaUsecase, renderExecutor)
	eventCache := redis.NewEventCache(redis.GetClient(), cfg.Billing.EventCacheTTL)
	reconcilerUsecase := usecases.NewReconcilerUsecase(accountRepo, billingEventRepo, accountUsecase, uow, prices).
		WithDedupe(eventCache)

	// Initialize handlers
	apiKeyHandler := handlers.NewApiKeyHandler(apiKeyUsecase, accountUsecase)
	accountHandler := handlers.NewAccountHandler(accountUsecase)
	renderHandler := handlers.NewRenderHandler(renderUsecase)
	webhookHandler := handlers.NewWebhookHandler(reconcilerUsecase, cfg.Billing.WebhookSecret)

	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerAPIV1Routes(r, routeDeps{
		apiKeyHandler:  apiKeyHandler,
		accountHandler: accountHandler,
		renderHandler:  renderHandler,
		webhookHandler: webhookHandler,
		sessionAuth:    middleware.AuthMiddleware(jwtService),
		apiKeyAuth:     middleware.ApiKeyAuthMiddleware(apiKeyUsecase),
	})

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down server...")
	}()

	// Start server
	log.Printf("🚀 NexArt Backend starting on port %s", cfg.Server.Port)
	log.Printf("📚 API: http://localhost:%s/api/v1", cfg.Server.Port)
	log.Printf("❤️ Health: http://localhost:%s/health", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
