package main

import (
	"fmt"
	"log"
	"time"

	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/labstack/echo/v4"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/caching"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/config"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/handlers"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/jobs/background"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/middleware"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/services"
	"github.com/liamcarterppt/MailControlHub-sub001/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := database.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Cache and object storage
	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	statementStore, err := services.NewMinioStatementStore(
		cfg.Minio.Endpoint,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.Bucket,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("Failed to initialize statement store: %v", err)
	}

	// Repositories
	accountRepo := repositories.NewAccountRepo(pool)
	planRepo := repositories.NewPlanRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)
	referralRepo := repositories.NewReferralRepo(pool)
	creditRepo := repositories.NewCreditRepo(pool)
	resellerRepo := repositories.NewResellerRepo(pool)
	periodRepo := repositories.NewCommissionPeriodRepo(pool)

	// Services
	notifier := services.NewNotificationService(cfg.NotifierURL)

	gatewaySvc := services.NewGatewayService(services.GatewayConfig{
		BaseURL:       cfg.Gateway.BaseURL,
		APIKey:        cfg.Gateway.APIKey,
		APISecret:     cfg.Gateway.APISecret,
		WebhookSecret: cfg.Gateway.WebhookSecret,
		Timeout:       cfg.Gateway.Timeout,
		MaxRetries:    cfg.Gateway.MaxRetries,
	})

	planSvc := services.NewPlanService(planRepo, cacheSvc)

	referralSvc := services.NewReferralService(referralRepo, accountRepo, creditRepo, notifier, services.ReferralPolicy{
		RewardCents:            cfg.Billing.ReferralRewardCents,
		RefereeDiscountPercent: cfg.Billing.RefereeDiscountPercent,
		ExpiryWindow:           time.Duration(cfg.Billing.ReferralExpiryDays) * 24 * time.Hour,
	})

	accountSvc := services.NewAccountService(accountRepo, referralSvc)

	subscriptionSvc := services.NewSubscriptionService(subscriptionRepo, planSvc, referralSvc, gatewaySvc, notifier, services.SubscriptionPolicy{
		ChargeRetryBudget: cfg.Billing.ChargeRetryBudget,
	})

	ledgerSvc := services.NewLedgerService(pool, invoiceRepo, accountRepo, periodRepo, referralSvc, services.LedgerPolicy{
		LockWait: cfg.Billing.LockWait,
	})

	resellerSvc := services.NewResellerService(resellerRepo, accountRepo)

	commissionSvc := services.NewCommissionService(
		pool,
		periodRepo,
		invoiceRepo,
		resellerRepo,
		accountRepo,
		statementStore,
		notifier,
		cacheSvc,
		services.CommissionPolicy{LockWait: cfg.Billing.LockWait},
	)

	// Handlers
	accountHandlers := handlers.NewAccountHandlers(accountSvc)
	billingHandlers := handlers.NewBillingHandlers(planSvc, subscriptionSvc, ledgerSvc)
	referralHandlers := handlers.NewReferralHandlers(referralSvc, accountSvc)
	resellerHandlers := handlers.NewResellerHandlers(resellerSvc, commissionSvc, accountSvc, statementStore)
	webhookHandlers := handlers.NewWebhookHandlers(gatewaySvc, subscriptionSvc, ledgerSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, statementStore)

	// Echo instance
	e := echo.New()

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	// Webhook endpoint, authenticated by HMAC signature instead of JWT
	e.POST("/webhooks/payment", webhookHandlers.PaymentWebhook)

	v1 := e.Group("/v1")
	v1.Use(middleware.VersionHeader("v1"))

	// Signup is open; everything else requires a token
	v1.POST("/accounts", accountHandlers.CreateAccount)
	v1.GET("/plans", billingHandlers.ListPlans)

	protected := v1.Group("")
	protected.Use(middleware.JWTMiddleware(accountRepo, cfg.JWTSecret))

	protected.GET("/accounts/me", accountHandlers.GetMe)

	protected.POST("/plans", billingHandlers.CreatePlan, middleware.RequireRole(models.RoleAdmin))
	protected.DELETE("/plans/:id", billingHandlers.DeactivatePlan, middleware.RequireRole(models.RoleAdmin))

	protected.POST("/subscriptions", billingHandlers.Subscribe)
	protected.GET("/subscriptions/current", billingHandlers.CurrentSubscription)
	protected.POST("/subscriptions/cancel", billingHandlers.CancelSubscription)
	protected.GET("/invoices", billingHandlers.ListInvoices)

	protected.GET("/referrals", referralHandlers.ListReferrals)
	protected.GET("/referrals/code", referralHandlers.MyReferralCode)

	reseller := protected.Group("/reseller", middleware.RequireRole(models.RoleReseller))
	reseller.GET("/settings", resellerHandlers.GetSettings)
	reseller.PUT("/settings", resellerHandlers.UpdateSettings)
	reseller.GET("/limits", resellerHandlers.GetLimits)
	reseller.GET("/customers", resellerHandlers.ListCustomers)
	reseller.GET("/tiers", resellerHandlers.ListTiers)
	reseller.POST("/tiers", resellerHandlers.AddTier)
	reseller.DELETE("/tiers/:id", resellerHandlers.RemoveTier)
	reseller.GET("/dashboard", resellerHandlers.Dashboard)
	reseller.GET("/periods", resellerHandlers.ListPeriods)
	reseller.POST("/periods/:key/close", resellerHandlers.ClosePeriod)
	reseller.GET("/periods/:key/statement", resellerHandlers.PeriodStatement)

	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.POST("/periods/:key/pay", resellerHandlers.MarkPeriodPaid)
	admin.POST("/periods/:key/recompute", resellerHandlers.RecomputePeriod)

	// Background reconciliation sweeps
	scheduler := background.NewJobScheduler(subscriptionSvc, referralSvc)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop scheduler: %v", err)
		}
	}()

	log.Printf("MailControlHub billing engine v%s starting on port %d", version, cfg.Port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
