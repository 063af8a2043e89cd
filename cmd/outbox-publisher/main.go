package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/communityhub/marketplace-backend/pkg/amqp"
	"github.com/communityhub/marketplace-backend/pkg/config"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/instance"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/communityhub/marketplace-backend/pkg/metrics"
	"github.com/communityhub/marketplace-backend/pkg/migrate"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/communityhub/marketplace-backend/pkg/outbox/registry"
	"github.com/communityhub/marketplace-backend/pkg/pubsub"
)

type closableBroker interface {
	Broker
	io.Closer
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Static: map[string]string{
			"env":      cfg.App.Env,
			"broker":   cfg.Outbox.Broker,
			"instance": instance.GetID(),
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.Store, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	broker, err := newBroker(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, broker.Close()) }()

	promRegistry := prometheus.NewRegistry()
	publisherMetrics := metrics.NewPublisher(promRegistry)
	if cfg.Metrics.Enabled {
		stopMetrics := serveMetrics(ctx, cfg, logg, promRegistry)
		defer stopMetrics()
	}

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Broker:     broker,
		Repository: outbox.NewRepository(),
		Registry:   registry.NewEventRegistry(),
		Metrics:    publisherMetrics,
	})
	if err != nil {
		return fmt.Errorf("create outbox publisher: %w", err)
	}

	logg.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}

func newBroker(ctx context.Context, cfg *config.Config, logg *logger.Logger) (closableBroker, error) {
	switch strings.ToLower(cfg.Outbox.Broker) {
	case config.BrokerAMQP:
		pub, err := amqp.NewPublisher(cfg.AMQP, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap amqp: %w", err)
		}
		return pub, nil
	case "", config.BrokerPubSub:
		client, err := pubsub.NewClient(ctx, cfg.PubSub, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap pubsub: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported outbox broker %q", cfg.Outbox.Broker)
	}
}

// serveMetrics exposes the publisher registry on the app port.
func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger, gatherer prometheus.Gatherer) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}
