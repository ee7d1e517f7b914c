package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bidmart-backend/internal/analytics/router"
	"github.com/angelmondragon/bidmart-backend/internal/analytics/worker"
	"github.com/angelmondragon/bidmart-backend/internal/analytics/writer"
	"github.com/angelmondragon/bidmart-backend/pkg/bigquery"
	"github.com/angelmondragon/bidmart-backend/pkg/config"
	"github.com/angelmondragon/bidmart-backend/pkg/instance"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/metrics"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bidmart-backend/pkg/pubsub"
	"github.com/angelmondragon/bidmart-backend/pkg/redis"
)

const serviceName = "analytics-worker"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: config: %v\n", serviceName, err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker stopped", err)
		stop()
		os.Exit(1)
	}
}

// run wires redis dedupe, the analytics subscription and the BigQuery writer,
// then consumes until ctx ends.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	closers = append(closers, redisClient)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	closers = append(closers, pubsubClient)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bigquery: %w", err)
	}
	closers = append(closers, bqClient)

	sub := pubsubClient.AnalyticsSubscription()
	if sub == nil {
		return errors.New("analytics subscription not configured")
	}
	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}
	rowWriter, err := writer.New(bqClient, writer.Config{MarketplaceTable: cfg.BigQuery.MarketplaceEventsTable})
	if err != nil {
		return err
	}
	handler, err := router.NewRouter(rowWriter, logg, nil)
	if err != nil {
		return err
	}
	svc, err := worker.NewService(sub, handler, manager, logg)
	if err != nil {
		return err
	}

	metrics.ServeDefault(ctx, cfg.Metrics.Addr, logg)
	logg.Info(ctx, "analytics worker ready")
	return svc.Run(ctx)
}
