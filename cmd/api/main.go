package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-backend/config"
	httpHandler "marketplace-backend/internal/adapter/http/handler"
	"marketplace-backend/internal/adapter/messaging/kafka"
	"marketplace-backend/internal/adapter/storage/memory"
	pgStorage "marketplace-backend/internal/adapter/storage/postgres"
	redisStorage "marketplace-backend/internal/adapter/storage/redis"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/internal/service"
	"marketplace-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// repositories groups the storage ports for the selected database driver.
type repositories struct {
	users        ports.UserRepository
	merchants    ports.MerchantRepository
	wallets      ports.WalletRepository
	items        ports.ItemRepository
	transactions ports.TransactionRepository
	audit        ports.AuditRepository
	transactor   ports.DBTransactor
	health       ports.HealthChecker
	close        func()
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("driver", cfg.Database.Driver).
		Msg("Starting marketplace backend")

	ctx := context.Background()

	repos, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer repos.close()

	healthCheckers := []ports.HealthChecker{repos.health}

	// Redis-backed stores are optional
	var (
		rateLimitStore   *redisStorage.RateLimitStore
		idempotencyCache ports.IdempotencyCache
		refreshStore     ports.RefreshTokenStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		idempotencyCache = redisStorage.NewIdempotencyCache(rdb)
		refreshStore = redisStorage.NewRefreshTokenStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: no rate limiting, purchase replay, or refresh token rotation")
	}

	// Purchase events are optional
	var publisher ports.EventPublisher
	if cfg.Kafka.Enabled() {
		p := kafka.NewPublisher(cfg.Kafka, log)
		defer func() {
			if err := p.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to flush purchase events")
			}
		}()
		publisher = p
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher enabled")
	}

	// Initialize core services
	hashSvc := service.NewBcryptHashService(cfg.Auth.BcryptCost)
	tokenSvc, err := service.NewJWTTokenService(cfg.JWT)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token service")
	}
	pager := service.NewPaginator(cfg.Pagination.DefaultPageSize, cfg.Pagination.MaxPageSize)
	auditSvc := service.NewAuditService(repos.audit, log)

	// Initialize business services
	authSvc := service.NewAuthService(repos.users, hashSvc, tokenSvc, refreshStore, cfg.Auth.AllowRegistration, log)
	purchaseSvc := service.NewPurchaseService(
		repos.wallets,
		repos.items,
		repos.merchants,
		repos.transactions,
		repos.transactor,
		publisher,
		auditSvc,
		cfg.Purchase,
		logger.Component(log, "purchase"),
	)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		Gate:           service.NewGate(repos.users, tokenSvc),
		MerchantSvc:    service.NewMerchantService(repos.merchants, pager),
		ItemSvc:        service.NewItemService(repos.items, repos.merchants, repos.transactor, pager),
		WalletSvc:      service.NewWalletService(repos.wallets, repos.merchants, repos.transactor, log),
		PurchaseSvc:    purchaseSvc,
		QuerySvc:       service.NewTransactionQueryService(repos.transactions, repos.wallets, repos.merchants, pager),
		AuditSvc:       auditSvc,
		Idempotency:    idempotencyCache,
		RateLimitStore: rateLimitStore,
		RateLimits:     cfg.RateLimit,
		HealthCheckers: healthCheckers,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Logger:         logger.Component(log, "http"),
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStorage connects the configured database driver and builds its repositories.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			users:        memory.NewUserRepo(store),
			merchants:    memory.NewMerchantRepo(store),
			wallets:      memory.NewWalletRepo(store),
			items:        memory.NewItemRepo(store),
			transactions: memory.NewTransactionRepo(store),
			audit:        memory.NewAuditRepo(store),
			transactor:   memory.NewTransactor(store),
			health:       memory.NewHealthCheck(),
			close:        func() {},
		}, nil

	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := pgStorage.Migrate(cfg.Database, pgStorage.MigrateUp, log); err != nil {
				return nil, fmt.Errorf("applying migrations: %w", err)
			}
		}
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		log.Info().Msg("PostgreSQL connected")
		return &repositories{
			users:        pgStorage.NewUserRepo(pool),
			merchants:    pgStorage.NewMerchantRepo(pool),
			wallets:      pgStorage.NewWalletRepo(pool),
			items:        pgStorage.NewItemRepo(pool),
			transactions: pgStorage.NewTransactionRepo(pool),
			audit:        pgStorage.NewAuditRepo(pool),
			transactor:   pgStorage.NewTransactor(pool, cfg.Purchase.LockTimeout),
			health:       pgStorage.NewHealthCheck(pool),
			close:        pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
