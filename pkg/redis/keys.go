package redis

import "strings"

// Keyspace prefixes every key this service writes.
type Keyspace string

const DefaultKeyspace Keyspace = "bm"

// Key joins the non-empty parts under the keyspace with ':'.
func (k Keyspace) Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(string(k))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// IdempotencyKey addresses a stored idempotent response or consumed event.
func (c *Client) IdempotencyKey(scope, id string) string {
	return c.keyspace().Key("idempotency", scope, id)
}

// RateLimitKey addresses a fixed-window counter.
func (c *Client) RateLimitKey(scope string) string {
	return c.keyspace().Key("rate_limit", scope)
}

// LockKey addresses a short mutual-exclusion lock.
func (c *Client) LockKey(scope, id string) string {
	return c.keyspace().Key("lock", scope, id)
}

func (c *Client) keyspace() Keyspace {
	if c.keys == "" {
		return DefaultKeyspace
	}
	return c.keys
}
