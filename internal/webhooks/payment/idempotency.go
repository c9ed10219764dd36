package paymentwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ykarpenko/solvebot-backend/pkg/redis"
)

// IdempotencyGuard short-circuits webhook retries before they reach the
// database. It is a fast path only; the payments table is the authority.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, invoiceID string) (bool, error) {
	if invoiceID == "" {
		return false, errors.New("invoice id is required")
	}
	key := g.store.IdempotencyKey(g.scope, invoiceID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

func (g *IdempotencyGuard) Delete(ctx context.Context, invoiceID string) error {
	if invoiceID == "" {
		return errors.New("invoice id is required")
	}
	key := g.store.IdempotencyKey(g.scope, invoiceID)
	return g.store.Del(ctx, key)
}
