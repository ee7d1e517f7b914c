package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by TryLock when another owner holds the key.
var ErrLockHeld = errors.New("lock held by another owner")

// FixedWindowAllow counts a hit against scope and reports whether the count
// is still within limit for the current window. The window starts at the
// first hit; ExpireNX runs on every hit so a lost expire heals itself.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c.store == nil {
		return false, 0, errNotConnected
	}
	key := c.RateLimitKey(scope)
	count, err := c.store.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if window > 0 {
		if err := c.store.ExpireNX(ctx, key, window).Err(); err != nil {
			return false, count, err
		}
	}
	return count <= limit, count, nil
}

// TryLock claims key for ttl and returns the owner token needed to release
// it, or ErrLockHeld.
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	owner := uuid.NewString()
	ok, err := c.SetNX(ctx, key, owner, ttl)
	switch {
	case err != nil:
		return "", err
	case !ok:
		return "", ErrLockHeld
	}
	return owner, nil
}

// Unlock releases key if owner still holds it. An expired or foreign lock is
// left alone.
func (c *Client) Unlock(ctx context.Context, key, owner string) error {
	current, err := c.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if current != owner {
		return nil
	}
	return c.Del(ctx, key)
}
