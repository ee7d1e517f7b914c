package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bidmart-backend/pkg/logger"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func TestNewServiceRequiresConsumer(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}

func TestRunFailsWhenDependencyDown(t *testing.T) {
	started := false
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Deps: map[string]pinger{
			"redis": pingFunc(func(context.Context) error { return errors.New("refused") }),
		},
		Consumers: map[string]consumer{
			"notifications": runFunc(func(context.Context) error {
				started = true
				return nil
			}),
		},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.ErrorContains(t, err, "redis ping failed")
	require.False(t, started)
}

func TestRunReturnsConsumerError(t *testing.T) {
	boom := errors.New("receive failed")
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumers: map[string]consumer{
			"notifications": runFunc(func(context.Context) error { return boom }),
		},
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Run(context.Background()), boom)
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumers: map[string]consumer{
			"notifications": runFunc(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}),
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
}
