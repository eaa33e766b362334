package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/wage-wallet/internal/api/http"
	"github.com/spec-kit/wage-wallet/internal/api/http/handlers"
	"github.com/spec-kit/wage-wallet/internal/auth"
	"github.com/spec-kit/wage-wallet/internal/cache"
	"github.com/spec-kit/wage-wallet/internal/config"
	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/observability"
	"github.com/spec-kit/wage-wallet/internal/persistence"
	"github.com/spec-kit/wage-wallet/internal/repository"
	"github.com/spec-kit/wage-wallet/internal/service"
	"github.com/spec-kit/wage-wallet/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store  repository.Store
		users  repository.UserRepository
		admins repository.AdminRepository
		checks []handlers.HealthCheck
	)
	switch cfg.Storage.Backend {
	case config.StorageBackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}

		pool := pg.PoolHandle()
		store = repository.NewPostgresStore(pool, cfg.Postgres.TxRetries, logger)
		users = repository.NewUserRepository(pool)
		admins = repository.NewAdminRepository(pool)
		checks = append(checks, handlers.HealthCheck{Name: "postgres", Ping: pg.Ping})
	default:
		logger.Warn("using in-memory storage; data is lost on restart")
		store = repository.NewMemoryStore()
		users = repository.NewMemoryUserRepository()
		admins = repository.NewMemoryAdminRepository()
	}
	defer store.Close()

	var staffCache cache.StaffCache
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		staffCache = cache.NewRedisStaffCache(redis.Client, cfg.Cache.KeyPrefix, cfg.Cache.TTL())
		checks = append(checks, handlers.HealthCheck{Name: "redis", Ping: redis.Ping})
	default:
		staffCache = cache.NewMemoryStaffCache(cfg.Cache.TTL())
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(dispatcher, service.NewNotificationService(dispatcher, logger, cfg.Notification), metrics)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:  users,
		AdminRepo: admins,
		Logger:    logger,
	})
	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), users, admins)

	deps := service.WalletDependencies{
		Store:      store,
		Cache:      staffCache,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
		Config:     cfg.Wallet,
	}
	sessionService := service.NewSessionService(deps)
	walletService := service.NewWalletService(deps)
	requestService := service.NewPaymentRequestService(deps)
	ledgerService := service.NewLedgerService(deps)
	staffService := service.NewStaffService(deps)

	app := httptransport.NewApp(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, checks...),
		Users:           handlers.NewUsersHandler(authService),
		Callable:        handlers.NewCallableHandler(sessionService, walletService, requestService, staffService),
		Wallet:          handlers.NewWalletHandler(staffService, ledgerService),
		Staff:           handlers.NewStaffHandler(staffService, walletService, ledgerService),
		PaymentRequests: handlers.NewPaymentRequestsHandler(requestService),
		AuthMiddleware:  authMiddleware,
	})

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("cache", cfg.Cache.Backend))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
