package main

import (
	"fmt"
	"log"
	"net/http"

	"storefront/internal/api"
	"storefront/internal/api/handlers"
	"storefront/internal/api/middleware"
	"storefront/internal/engine/catalog"
	"storefront/internal/engine/orders"
	"storefront/internal/engine/payments"
	"storefront/internal/pkg/logger"
	"storefront/internal/platform/audit"
	"storefront/internal/platform/auth"
	"storefront/internal/platform/config"
	"storefront/internal/platform/database"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Fail closed: without the provider secrets the pipeline cannot
	// authenticate callbacks or fetch canonical session data.
	if cfg.Payments.SecretKey == "" {
		log.Fatal("payments.secret_key is required")
	}
	if cfg.Payments.WebhookSecret == "" {
		log.Fatal("payments.webhook_secret is required")
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Repositories
	catalogRepo := catalog.NewRepository(db)
	orderRepo := orders.NewRepository(db)
	trail := audit.NewTrail()

	// Services
	client := payments.NewClient(cfg.Payments.APIBaseURL, cfg.Payments.SecretKey, cfg.Payments.RequestTimeout)
	processor := payments.NewProcessor(db, client, catalogRepo, orderRepo, trail)
	tokenSvc := auth.NewTokenService(cfg.Admin)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(cfg.Payments.WebhookSecret, cfg.Payments.ReplayTolerance, processor)
	checkoutHandler := handlers.NewCheckoutHandler(catalogRepo, client, cfg.Checkout, cfg.Payments.Enabled)
	authHandler := handlers.NewAuthHandler(cfg.Admin, tokenSvc)
	orderHandler := handlers.NewOrderHandler(orderRepo)
	auditHandler := handlers.NewAuditHandler(db)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)
	rateLimiter := middleware.NewRateLimiter()

	// Router
	deps := &api.Dependencies{
		WebhookHandler:  webhookHandler,
		CheckoutHandler: checkoutHandler,
		AuthHandler:     authHandler,
		OrderHandler:    orderHandler,
		AuditHandler:    auditHandler,
		HealthHandler:   healthHandler,
		AuthMiddleware:  authMiddleware,
		RateLimiter:     rateLimiter,
		RateLimits:      cfg.RateLimit,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
