package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salvage-auction-engine/config"
	"salvage-auction-engine/internal/adapter/broadcast"
	httpHandler "salvage-auction-engine/internal/adapter/http/handler"
	"salvage-auction-engine/internal/adapter/notify"
	pgStorage "salvage-auction-engine/internal/adapter/storage/postgres"
	redisStorage "salvage-auction-engine/internal/adapter/storage/redis"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/internal/service"
	"salvage-auction-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Salvage Auction Engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	vendorRepo := pgStorage.NewVendorRepo(pool)
	auctionRepo := pgStorage.NewAuctionRepo(pool)
	bidRepo := pgStorage.NewBidRepo(pool)
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	otpStore := redisStorage.NewOTPStore(rdb)
	presenceStore := redisStorage.NewPresenceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Broadcast hub with cross-replica fanout over Redis pub/sub
	hub := broadcast.NewHub(log)
	go hub.Run(ctx)
	bridge := broadcast.NewRedisBridge(rdb, hub, log)
	go bridge.Run(ctx)

	// Outbound notification gateway
	notifier := notify.NewHTTPNotifier(cfg.Notify.GatewayURL, cfg.Notify.APIKey,
		&http.Client{Timeout: cfg.Notify.Timeout}, log)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, log)
	otpSvc := service.NewOTPService(otpStore, rateLimitStore, notifier, log)

	// Initialize business services
	authSvc := service.NewAuthService(vendorRepo, hashSvc, tokenSvc)
	walletSvc := service.NewWalletService(
		walletRepo,
		txRepo,
		idempotencyRepo,
		idempotencyCache,
		auditSvc,
		transactor,
		log,
	)
	presenceSvc := service.NewPresenceService(presenceStore, bridge, cfg.Presence.MinDwell, log)
	extensionCtrl := service.NewExtensionController(auctionRepo, auditSvc,
		cfg.Auction.AntiSnipeWindow, cfg.Auction.ExtendBy, log)
	biddingSvc := service.NewBiddingService(
		auctionRepo,
		bidRepo,
		vendorRepo,
		walletRepo,
		otpSvc,
		extensionCtrl,
		bridge,
		notifier,
		auditSvc,
		cfg.Auction.TierOneCeiling,
		log,
	)
	closureSvc := service.NewClosureService(
		auctionRepo,
		bidRepo,
		paymentRepo,
		walletSvc,
		presenceSvc,
		bridge,
		notifier,
		auditSvc,
		transactor,
		cfg.Auction.PaymentWindow,
		log,
	)
	deadlineSvc := service.NewDeadlineService(
		paymentRepo,
		vendorRepo,
		auctionRepo,
		walletSvc,
		notifier,
		auditSvc,
		cfg.Auction.RelistDuration,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	if cfg.Scheduler.Secret == "" {
		log.Warn().Msg("Scheduler secret not set, sweep routes will reject all requests")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:         authSvc,
		OTPSvc:          otpSvc,
		BiddingSvc:      biddingSvc,
		WalletSvc:       walletSvc,
		PresenceSvc:     presenceSvc,
		ClosureSvc:      closureSvc,
		DeadlineSvc:     deadlineSvc,
		AuctionRepo:     auctionRepo,
		BidRepo:         bidRepo,
		TokenSvc:        tokenSvc,
		Hub:             hub,
		RateLimiter:     rateLimitStore,
		SchedulerSecret: cfg.Scheduler.Secret,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
