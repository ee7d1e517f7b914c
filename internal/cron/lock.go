package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/bidmart-backend/pkg/redis"
)

const defaultLockTTL = 10 * time.Minute

var (
	errNoLockStore = errors.New("cron lock: redis client required")
	errNoLockName  = errors.New("cron lock: name required")
)

// Lock is held for the duration of one cron cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type ownerLocker interface {
	LockKey(scope, id string) string
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, owner string) error
}

// RedisLock is a single-owner lease on bm:lock:cron:<name>. The token returned
// by TryLock is kept so Release never frees a lease taken over after expiry.
type RedisLock struct {
	store ownerLocker
	key   string
	lease time.Duration
	token string
}

func NewRedisLock(store ownerLocker, name string, lease time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errNoLockStore
	case name == "":
		return nil, errNoLockName
	case lease <= 0:
		lease = defaultLockTTL
	}
	return &RedisLock{store: store, key: store.LockKey("cron", name), lease: lease}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token, err := l.store.TryLock(ctx, l.key, l.lease)
	switch {
	case errors.Is(err, redis.ErrLockHeld):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	l.token = token
	return true, nil
}

// Release is a no-op when the lease is not held.
func (l *RedisLock) Release(ctx context.Context) error {
	token := l.token
	if token == "" {
		return nil
	}
	l.token = ""
	if err := l.store.Unlock(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
