package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bidmart-backend/internal/checkout"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
)

const (
	defaultOrphanAge      = 15 * time.Minute
	defaultReconcileBatch = 100
)

type CheckoutReconcileJobParams struct {
	Logger    *logger.Logger
	Checkout  checkoutReconciler
	OrphanAge time.Duration
	BatchSize int
}

type checkoutReconciler interface {
	Reconcile(ctx context.Context, olderThan time.Duration, limit int) (checkout.ReconcileSummary, error)
}

// NewCheckoutReconcileJob closes checkout attempts whose intent was never
// followed by orders.
func NewCheckoutReconcileJob(params CheckoutReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	age := params.OrphanAge
	if age <= 0 {
		age = defaultOrphanAge
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &checkoutReconcileJob{
		logg:     params.Logger,
		checkout: params.Checkout,
		age:      age,
		batch:    batch,
	}, nil
}

type checkoutReconcileJob struct {
	logg     *logger.Logger
	checkout checkoutReconciler
	age      time.Duration
	batch    int
}

func (j *checkoutReconcileJob) Name() string { return "checkout-reconcile" }

func (j *checkoutReconcileJob) Run(ctx context.Context) error {
	summary, err := j.checkout.Reconcile(ctx, j.age, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":    summary.Scanned,
		"reconciled": summary.Reconciled,
		"abandoned":  summary.Abandoned,
		"skipped":    summary.Skipped,
	})
	if err != nil {
		return fmt.Errorf("checkout reconcile: %w", err)
	}
	j.logg.Info(logCtx, "checkout reconcile complete")
	return nil
}
