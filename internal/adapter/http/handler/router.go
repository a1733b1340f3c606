package handler

import (
	"salvage-auction-engine/internal/adapter/broadcast"
	"salvage-auction-engine/internal/adapter/http/middleware"
	"salvage-auction-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc         ports.AuthService
	OTPSvc          ports.OTPVerifier
	BiddingSvc      ports.BiddingService
	WalletSvc       ports.WalletService
	PresenceSvc     ports.PresenceService
	ClosureSvc      ports.ClosureService
	DeadlineSvc     ports.DeadlineService
	AuctionRepo     ports.AuctionRepository
	BidRepo         ports.BidRepository
	TokenSvc        ports.TokenService
	Hub             *broadcast.Hub
	RateLimiter     ports.RateLimiter // nil = rate limiting disabled
	SchedulerSecret string
	HealthCheckers  []ports.HealthChecker
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if a store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc, deps.OTPSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		auth.POST("/otp", rl("otp_send"), authHandler.SendOTP)
	}

	// --- Public reads (catalog browsing needs no account) ---
	auctionHandler := NewAuctionHandler(deps.AuctionRepo, deps.BidRepo, deps.BiddingSvc, deps.PresenceSvc)
	auctions := v1.Group("/auctions")
	{
		auctions.GET("", rl("reads"), auctionHandler.List)
		auctions.GET("/:id", rl("reads"), auctionHandler.Get)
		auctions.GET("/:id/bids", rl("reads"), auctionHandler.ListBids)
		auctions.GET("/:id/watchers", rl("reads"), auctionHandler.Watchers)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc)
	wsHandler := NewWSHandler(deps.Hub, deps.PresenceSvc, deps.Logger)

	v1.POST("/auctions/:id/bids", jwtAuth, rl("bids"), auctionHandler.PlaceBid)
	v1.GET("/auctions/:id/stream", jwtAuth, wsHandler.SubscribeAuction)
	v1.GET("/vendors/me/stream", jwtAuth, wsHandler.SubscribeVendor)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl("reads"), walletHandler.GetBalance)
		wallet.POST("/deposits", rl("deposits"), walletHandler.Deposit)
		wallet.GET("/transactions", rl("reads"), walletHandler.ListTransactions)
	}

	// --- Scheduler routes (shared-secret auth, never exposed publicly) ---
	sweepHandler := NewSweepHandler(deps.ClosureSvc, deps.DeadlineSvc, deps.PresenceSvc)
	sweeps := r.Group("/internal/sweeps", middleware.SchedulerAuth(deps.SchedulerSecret, deps.Logger))
	{
		sweeps.POST("/closure", sweepHandler.Closure)
		sweeps.POST("/close-reminders", sweepHandler.CloseReminders)
		sweeps.POST("/deadlines", sweepHandler.Deadlines)
		sweeps.POST("/fraud-flags", sweepHandler.FraudFlags)
		sweeps.POST("/presence", sweepHandler.PresenceReap)
	}

	return r
}
