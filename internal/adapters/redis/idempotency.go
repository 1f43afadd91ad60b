package redis

import (
	"context"
	"time"
)

const idempotencyPrefix = "tradesync:idem:"

// IdempotencyGuard claims order idempotency keys via SETNX so a retried
// submission cannot place a second order, even across processes.
type IdempotencyGuard struct {
	client *Client
	ttl    time.Duration
}

// NewIdempotencyGuard creates a guard. Keys expire after ttl.
func NewIdempotencyGuard(client *Client, ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyGuard{client: client, ttl: ttl}
}

// Register claims the key. Returns false when another submission already
// claimed it.
func (g *IdempotencyGuard) Register(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, idempotencyPrefix+key, "1", g.ttl)
}
