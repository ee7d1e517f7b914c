// Package idempotency records which events a consumer has already handled so
// at-least-once delivery from Pub/Sub produces at-most-once side effects.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Store is the subset of the Redis client the manager needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var (
	errNoConsumer = errors.New("idempotency: consumer name is required")
	errNoEventID  = errors.New("idempotency: event id is required")
)

// Manager keeps one marker per (consumer, event) under
// bm:idempotency:evt:processed:<consumer>:<event_id>.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency: store is required")
	case ttl < 0:
		return nil, errors.New("idempotency: ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Seen sets the marker and reports whether it was already present.
func (m *Manager) Seen(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	fresh, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

// Forget clears the marker so a redelivery is processed again.
func (m *Manager) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Run calls fn unless the event was already seen. A failing fn releases the
// marker. skipped is true for duplicates.
func (m *Manager) Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (skipped bool, err error) {
	seen, err := m.Seen(ctx, consumer, eventID)
	if err != nil || seen {
		return seen, err
	}
	if err = fn(ctx); err != nil {
		return false, multierr.Append(err, m.Forget(ctx, consumer, eventID))
	}
	return false, nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errNoConsumer
	}
	if eventID == uuid.Nil {
		return "", errNoEventID
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
