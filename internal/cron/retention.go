package cron

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/pkg/logger"
)

const (
	notificationRetention  = 30 * 24 * time.Hour
	defaultOutboxRetention = 30 * 24 * time.Hour
	retentionEvery         = 24 * time.Hour
)

// purgeJob deletes rows older than now-retention once per day.
type purgeJob struct {
	name      string
	logg      *logger.Logger
	retention time.Duration
	purge     func(ctx context.Context, cutoff time.Time) (int64, error)
	now       func() time.Time
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Every() time.Duration { return retentionEvery }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "retention purge complete")
	return nil
}

func newPurgeJob(name string, logg *logger.Logger, retention, fallback time.Duration, purge func(context.Context, time.Time) (int64, error)) *purgeJob {
	if retention <= 0 {
		retention = fallback
	}
	return &purgeJob{name: name, logg: logg, retention: retention, purge: purge, now: time.Now}
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository interface {
		DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewNotificationCleanupJob purges notifications read longer ago than
// Retention. Unread notifications are never removed.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	return newPurgeJob("notification-cleanup", params.Logger, params.Retention, notificationRetention,
		params.Repository.DeleteReadBefore), nil
}

type OutboxRetentionJobParams struct {
	Logger *logger.Logger
	DB     interface {
		WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	}
	Repository interface {
		DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewOutboxRetentionJob purges published outbox rows. Unpublished rows are
// kept regardless of age so the publisher can still deliver them.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	purge := func(ctx context.Context, cutoff time.Time) (deleted int64, err error) {
		err = params.DB.WithTx(ctx, func(tx *gorm.DB) error {
			deleted, err = params.Repository.DeletePublishedBefore(tx, cutoff)
			return err
		})
		return deleted, err
	}
	return newPurgeJob("outbox-retention", params.Logger, params.Retention, defaultOutboxRetention, purge), nil
}
