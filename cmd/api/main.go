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

	"github.com/communityhub/marketplace-backend/api/routes"
	"github.com/communityhub/marketplace-backend/internal/auth"
	"github.com/communityhub/marketplace-backend/internal/catalog"
	"github.com/communityhub/marketplace-backend/internal/communities"
	"github.com/communityhub/marketplace-backend/internal/dashboard"
	"github.com/communityhub/marketplace-backend/internal/laundry"
	"github.com/communityhub/marketplace-backend/internal/orders"
	"github.com/communityhub/marketplace-backend/internal/payments"
	"github.com/communityhub/marketplace-backend/internal/pricing"
	product "github.com/communityhub/marketplace-backend/internal/products"
	"github.com/communityhub/marketplace-backend/internal/users"
	"github.com/communityhub/marketplace-backend/internal/vendors"
	"github.com/communityhub/marketplace-backend/pkg/auth/session"
	"github.com/communityhub/marketplace-backend/pkg/config"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/communityhub/marketplace-backend/pkg/metrics"
	"github.com/communityhub/marketplace-backend/pkg/migrate"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/communityhub/marketplace-backend/pkg/redis"
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
		Static:      map[string]string{"env": cfg.App.Env},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomain(registry)

	dbClient, err := db.New(ctx, cfg.DB, cfg.Store, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()
	dbClient.SetRetryObserver(domainMetrics)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	services, err := buildServices(cfg, logg, dbClient, sessionManager, domainMetrics)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Store:    redisClient,
			Sessions: sessionManager,
			Actors:   services.Auth,
			Gatherer: registry,
			Services: services,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(cfg *config.Config, logg *logger.Logger, client *db.Client, sessions *session.Manager, domainMetrics *metrics.Domain) (routes.Services, error) {
	var out routes.Services

	taxRate, err := cfg.Pricing.Rate()
	if err != nil {
		return out, err
	}
	engine, err := pricing.NewEngine(taxRate)
	if err != nil {
		return out, err
	}

	emitter := outbox.NewService(outbox.NewRepository(), logg)

	userRepo := users.NewRepository(client)
	communityRepo := communities.NewRepository(client)
	vendorRepo := vendors.NewRepository(client)
	orderRepo := laundry.NewRepository(client)

	lifecycle, err := laundry.NewLifecycle(emitter, domainMetrics, nil)
	if err != nil {
		return out, err
	}
	productLifecycle, err := orders.NewLifecycle(emitter, domainMetrics, nil)
	if err != nil {
		return out, err
	}

	if out.Auth, err = auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		Communities:    communityRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return out, err
	}
	if out.Communities, err = communities.NewService(communities.ServiceParams{Repo: communityRepo, Logger: logg}); err != nil {
		return out, err
	}
	if out.Vendors, err = vendors.NewService(vendors.ServiceParams{
		Repo:           vendorRepo,
		Users:          userRepo,
		Communities:    communityRepo,
		Tx:             client,
		Outbox:         emitter,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return out, err
	}
	if out.Catalog, err = catalog.NewService(catalog.NewRepository(client), logg); err != nil {
		return out, err
	}
	if out.Products, err = product.NewService(product.NewRepository(client), vendorRepo, logg); err != nil {
		return out, err
	}
	if out.Laundry, err = laundry.NewService(laundry.ServiceParams{
		Repo:      orderRepo,
		Tx:        client,
		Outbox:    emitter,
		Engine:    engine,
		Lifecycle: lifecycle,
		Logger:    logg,
	}); err != nil {
		return out, err
	}
	if out.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(client),
		Tx:        client,
		Outbox:    emitter,
		Engine:    engine,
		Lifecycle: productLifecycle,
		Logger:    logg,
	}); err != nil {
		return out, err
	}
	if out.Payments, err = payments.NewService(payments.ServiceParams{
		Repo:      payments.NewRepository(client),
		Orders:    orderRepo,
		Lifecycle: lifecycle,
		Tx:        client,
		Outbox:    emitter,
		Gateway:   payments.SimulatedGateway{},
		Metrics:   domainMetrics,
		Logger:    logg,
	}); err != nil {
		return out, err
	}
	if out.Dashboard, err = dashboard.NewService(dashboard.NewRepository(client), nil); err != nil {
		return out, err
	}
	return out, nil
}
