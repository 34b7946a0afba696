// Package main provides the main entry point for the Outreachly API server
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/outreachly/outreachly-backend/app/handlers"
	"github.com/outreachly/outreachly-backend/app/middleware"
	"github.com/outreachly/outreachly-backend/app/router"
	"github.com/outreachly/outreachly-backend/app/scheduler"
	"github.com/outreachly/outreachly-backend/app/services"
	businessflow "github.com/outreachly/outreachly-backend/business_flow"
	"github.com/outreachly/outreachly-backend/config"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Outreachly application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeMessenger picks the Graph API transport, or the in-memory one in
// local development
func initializeMessenger(cfg *config.InstagramConfig) services.Messenger {
	if cfg.Mock {
		log.Println("Instagram transport is MOCKED; no real messages will be sent")
		return services.NewMockMessenger()
	}
	return services.NewInstagramMessenger(cfg)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	stepRepo := repository.NewCampaignStepRepository(db)
	accountRepo := repository.NewSenderAccountRepository(db)
	linkRepo := repository.NewCampaignAccountRepository(db)
	recipientRepo := repository.NewCampaignRecipientRepository(db)
	dailyCountRepo := repository.NewDailyCountRepository(db)
	contactRepo := repository.NewContactRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Credential sealer protects sender account tokens at rest
	sealer, err := services.NewCredentialSealer(cfg.Security.CredentialKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential sealer: %w", err)
	}

	schedulerLogger := utils.NewComponentLogger("[scheduler]", cfg.Logging.Output, &utils.LogFileSettings{
		Path:       cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})

	sessionService := services.NewSessionService(accountRepo, sealer, schedulerLogger)
	messenger := initializeMessenger(&cfg.Instagram)

	// Redis run lock narrows concurrent invocations of the same campaign.
	// Without redis the optimistic recipient claim is the only guard.
	var runLock scheduler.RunLock
	if rc != nil {
		runLock = scheduler.NewRedisRunLock(rc, cfg.Cache.RedisPrefix, cfg.Scheduler.RunLockTTL)
	}

	runner := scheduler.NewCampaignRunner(
		campaignRepo,
		stepRepo,
		accountRepo,
		linkRepo,
		recipientRepo,
		dailyCountRepo,
		contactRepo,
		conversationRepo,
		messageRepo,
		sessionService,
		messenger,
		runLock,
		cfg.Scheduler,
		schedulerLogger,
	)

	// Initialize flows
	loginFlow := businessflow.NewLoginFlow(userRepo, tokenService)

	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		stepRepo,
		accountRepo,
		linkRepo,
		recipientRepo,
		dailyCountRepo,
		contactRepo,
		auditRepo,
		runner,
		db,
	)

	accountFlow := businessflow.NewAccountFlow(accountRepo, auditRepo, sealer, db)

	contactFlow := businessflow.NewContactFlow(contactRepo, auditRepo, db)

	webhookFlow := businessflow.NewWebhookFlow(
		accountRepo,
		contactRepo,
		conversationRepo,
		messageRepo,
		rc,
		cfg.Cache.RedisPrefix,
		cfg.Cache.WebhookDedupeTTL,
		cfg.Instagram.WebhookSecret,
		utils.NewComponentLogger("[webhook]", cfg.Logging.Output, nil),
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginFlow)
	campaignHandler := handlers.NewCampaignHandler(campaignFlow)
	accountHandler := handlers.NewAccountHandler(accountFlow)
	contactHandler := handlers.NewContactHandler(contactFlow)
	webhookHandler := handlers.NewWebhookHandler(webhookFlow, cfg.Instagram.VerifyToken)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, userRepo)

	// Initialize router
	appRouter := router.NewFiberRouter(
		authHandler,
		campaignHandler,
		accountHandler,
		contactHandler,
		webhookHandler,
		authMiddleware,
		cfg.Security.AllowedOrigins,
	)

	if cfg.Scheduler.Enabled {
		sweeper := scheduler.NewSweeper(runner, campaignRepo, cfg.Scheduler.SweepInterval, schedulerLogger)
		stopSweeper := sweeper.Start(context.Background())
		stopFuncs = append(stopFuncs, stopSweeper)
		log.Printf("Campaign sweeper started with %s interval", cfg.Scheduler.SweepInterval)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
