package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/gadgethub/storefront-backend/api/routes"
	"github.com/gadgethub/storefront-backend/internal/admin"
	"github.com/gadgethub/storefront-backend/internal/auth"
	"github.com/gadgethub/storefront-backend/internal/cart"
	"github.com/gadgethub/storefront-backend/internal/catalog"
	"github.com/gadgethub/storefront-backend/internal/identity"
	"github.com/gadgethub/storefront-backend/internal/orders"
	"github.com/gadgethub/storefront-backend/internal/payments"
	"github.com/gadgethub/storefront-backend/internal/reviews"
	"github.com/gadgethub/storefront-backend/pkg/auth/session"
	"github.com/gadgethub/storefront-backend/pkg/config"
	"github.com/gadgethub/storefront-backend/pkg/db"
	"github.com/gadgethub/storefront-backend/pkg/logger"
	"github.com/gadgethub/storefront-backend/pkg/metrics"
	"github.com/gadgethub/storefront-backend/pkg/migrate"
	"github.com/gadgethub/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	orderMetrics := metrics.NewOrderMetrics(registry)

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	reviewsRepo := reviews.NewRepository(conn)
	identityRepo := identity.NewRepository(conn)
	rolePolicy := identity.NewRolePolicy(cfg.Identity)

	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	requireService(logg, "catalog", err)

	cartService, err := cart.NewService(cartRepo, catalogRepo, dbClient)
	requireService(logg, "cart", err)

	ordersService, err := orders.NewService(ordersRepo, cartRepo, dbClient, orderMetrics, cfg.FeatureFlags, cfg.Delivery)
	requireService(logg, "orders", err)

	reviewsService, err := reviews.NewService(reviewsRepo, catalogRepo, ordersRepo, dbClient)
	requireService(logg, "reviews", err)

	identityService, err := identity.NewService(identityRepo, rolePolicy)
	requireService(logg, "identity", err)

	authService, err := auth.NewService(identityRepo, identityService, rolePolicy, sessionManager, cartService, cfg.JWT, cfg.Password)
	requireService(logg, "auth", err)

	paymentsService, err := payments.NewService(ordersService)
	requireService(logg, "payments", err)

	paymentsGuard, err := payments.NewEventGuard(redisClient, cfg.Payments.EventTTL, payments.Provider)
	requireService(logg, "payments guard", err)

	adminService, err := admin.NewService(conn)
	requireService(logg, "admin", err)

	handler := routes.NewRouter(cfg, logg, routes.Deps{
		DB:              dbClient,
		Redis:           redisClient,
		SessionManager:  sessionManager,
		HTTPMetrics:     httpMetrics,
		MetricsGatherer: registry,
		CatalogService:  catalogService,
		CartService:     cartService,
		OrdersService:   ordersService,
		ReviewsService:  reviewsService,
		IdentityService: identityService,
		AuthService:     authService,
		AdminService:    adminService,
		PaymentsService: paymentsService,
		PaymentsGuard:   paymentsGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr := server.Shutdown(shutdownCtx)
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr = multierr.Append(shutdownErr, err)
		}
		if shutdownErr != nil {
			logg.Error(ctx, "api server shutdown failed", shutdownErr)
			os.Exit(1)
		}
		logg.Info(ctx, "api server stopped")
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to create "+name+" service", err)
		os.Exit(1)
	}
}
