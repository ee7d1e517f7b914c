package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bidmart-backend/internal/ads"
	"github.com/angelmondragon/bidmart-backend/internal/cart"
	"github.com/angelmondragon/bidmart-backend/internal/catalog"
	"github.com/angelmondragon/bidmart-backend/internal/checkout"
	"github.com/angelmondragon/bidmart-backend/internal/cron"
	"github.com/angelmondragon/bidmart-backend/internal/notifications"
	"github.com/angelmondragon/bidmart-backend/internal/orders"
	"github.com/angelmondragon/bidmart-backend/pkg/config"
	"github.com/angelmondragon/bidmart-backend/pkg/db"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/instance"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/metrics"
	"github.com/angelmondragon/bidmart-backend/pkg/migrate"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/payment/razorpay"
	"github.com/angelmondragon/bidmart-backend/pkg/redis"
)

const serviceName = "cron-worker"

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
		logg.Error(ctx, "cron worker stopped", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

// run executes the registered jobs on every tick while this instance holds
// the cron lock.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	checkoutSvc, err := buildCheckout(cfg, logg, dbClient, redisClient)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	jobs, err := buildRegistry(cfg, logg, dbClient, checkoutSvc)
	if err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), 0)
	if err != nil {
		return err
	}

	svc, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Checkout.ReconcileInterval,
	})
	if err != nil {
		return err
	}

	metrics.ServeDefault(ctx, cfg.Metrics.Addr, logg)
	logg.Info(ctx, "cron worker ready")
	return svc.Run(ctx)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, checkoutSvc checkout.Service) (*cron.Registry, error) {
	reconcile, err := cron.NewCheckoutReconcileJob(cron.CheckoutReconcileJobParams{
		Logger:    logg,
		Checkout:  checkoutSvc,
		OrphanAge: cfg.Checkout.OrphanAttemptAge,
		BatchSize: cfg.Checkout.ReconcileBatch,
	})
	if err != nil {
		return nil, err
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(dbClient.DB()),
	})
	if err != nil {
		return nil, err
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(reconcile, cleanup, retention), nil
}

// buildCheckout wires the checkout service for the orphaned-attempt sweep.
func buildCheckout(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (checkout.Service, error) {
	conn := dbClient.DB()

	currency, err := enums.ParseCurrency(cfg.Payment.Currency)
	if err != nil {
		return nil, err
	}
	gateway, err := razorpay.NewClient(cfg.Payment, logg)
	if err != nil {
		return nil, err
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	adsRepo := ads.NewRepository(conn)

	return checkout.NewService(checkout.Deps{
		Attempts: checkout.NewAttemptRepository(conn),
		Orders:   orders.NewRepository(conn),
		Carts:    cart.NewRepository(conn),
		Offers:   adsRepo,
		Vendors:  ads.NewVendorRepository(conn),
		Catalog:  catalogSvc,
		Gateway:  gateway,
		Locker:   redisClient,
		Tx:       dbClient,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Currency: currency,
		Logger:   logg,
	})
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
