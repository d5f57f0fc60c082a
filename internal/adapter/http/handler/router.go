package handler

import (
	"marketplace-backend/config"
	"marketplace-backend/internal/adapter/http/middleware"
	redisStore "marketplace-backend/internal/adapter/storage/redis"
	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	Gate           ports.AuthorizationGate
	MerchantSvc    ports.MerchantService
	ItemSvc        ports.ItemService
	WalletSvc      ports.WalletService
	PurchaseSvc    ports.PurchaseService
	QuerySvc       ports.TransactionQueryService
	AuditSvc       ports.AuditService         // nil = audit logging disabled
	Idempotency    ports.IdempotencyCache     // nil = purchase replay disabled
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimits     config.RateLimitConfig
	HealthCheckers []ports.HealthChecker
	MaxBodyBytes   int64
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Helper: rate limiter for a configured group, noop when unconfigured.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := deps.RateLimits.Rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	bearer := middleware.BearerAuth(deps.Gate)
	adminOnly := middleware.RequireRole(deps.Gate, domain.RoleAdmin)

	// --- Sessions and accounts ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	r.POST("/token", rl(middleware.GroupToken), authHandler.Token)
	r.POST("/token/refresh", rl(middleware.GroupToken), authHandler.Refresh)

	users := r.Group("/users")
	{
		users.POST("", middleware.OptionalBearerAuth(deps.Gate), rl(middleware.GroupRegister), authHandler.Register)
		users.GET("/me", bearer, authHandler.Me)
		users.PUT("/:id/change_password", bearer, authHandler.ChangePassword)
	}

	// --- Merchants ---
	merchantHandler := NewMerchantHandler(deps.MerchantSvc)
	merchants := r.Group("/merchants")
	{
		merchants.GET("", merchantHandler.List)
		merchants.GET("/:id", merchantHandler.Get)
		merchants.POST("", bearer, merchantHandler.Create)
		merchants.PUT("/:id", bearer, merchantHandler.Update)
		merchants.DELETE("/:id", bearer, merchantHandler.Delete)
	}

	// --- Items ---
	itemHandler := NewItemHandler(deps.ItemSvc)
	items := r.Group("/items")
	{
		items.GET("", itemHandler.List)
		items.GET("/:id", itemHandler.Get)
		items.POST("", bearer, itemHandler.Create)
		items.PUT("/:id", bearer, itemHandler.Update)
		items.DELETE("/:id", bearer, itemHandler.Delete)
	}

	// --- Wallets ---
	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallets := r.Group("/wallets", bearer, rl(middleware.GroupWallets))
	{
		wallets.POST("/:id", walletHandler.Create)
		wallets.GET("/:id", walletHandler.Get)
		wallets.PUT("/:id", adminOnly, walletHandler.SetBalance)
		wallets.POST("/:id/topup", walletHandler.Topup)
		wallets.DELETE("/:id", walletHandler.Delete)
	}

	// --- Transactions ---
	txnHandler := NewTransactionHandler(deps.PurchaseSvc, deps.QuerySvc, deps.Idempotency, deps.Logger)
	transactions := r.Group("/transactions", bearer)
	{
		transactions.POST("/:wallet_id/:item_id", rl(middleware.GroupPurchase), txnHandler.Purchase)
		transactions.GET("/:wallet_id", txnHandler.List)
		transactions.GET("/:wallet_id/:transaction_id", txnHandler.Get)
	}

	return r
}
