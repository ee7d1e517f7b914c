package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	reg := NewRegistry(namedJob("checkout-reconcile"), nil, namedJob("outbox-retention"))

	jobs := reg.Jobs()
	require.Len(t, jobs, 2)
	require.Equal(t, "checkout-reconcile", jobs[0].Name())
	require.Equal(t, "outbox-retention", jobs[1].Name())

	jobs[0] = nil
	require.NotNil(t, reg.Jobs()[0])
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := &Registry{}
	require.NoError(t, reg.Register(namedJob("notification-cleanup")))
	require.Error(t, reg.Register(namedJob("notification-cleanup")))
	require.Len(t, reg.Jobs(), 1)

	require.Panics(t, func() {
		NewRegistry(namedJob("a"), namedJob("a"))
	})
}
