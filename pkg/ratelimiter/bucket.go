package ratelimiter

import (
	"context"
	"fmt"
)

// Limiter is what Middleware needs. *Bucket implements it.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Bucket is a token bucket over a Store.
type Bucket struct {
	store Store
	cfg   Config
}

// NewBucket creates a bucket. It returns ErrInvalidConfig for a
// non-positive capacity or rate, or an interval below one millisecond.
func NewBucket(store Store, cfg Config) (*Bucket, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, cfg: cfg}, nil
}

// Config returns the bucket parameters.
func (b *Bucket) Config() Config { return b.cfg }

func (b *Bucket) Allow(ctx context.Context, key string) (Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN takes n tokens for key if they are available.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (Result, error) {
	if n <= 0 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidTokenCount, n)
	}
	return b.consume(ctx, key, n)
}

// Peek refills and reports the state of key without taking tokens.
func (b *Bucket) Peek(ctx context.Context, key string) (Result, error) {
	return b.consume(ctx, key, 0)
}

func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}

func (b *Bucket) consume(ctx context.Context, key string, n int) (Result, error) {
	remaining, resetAt, err := b.store.Consume(ctx, key, n, b.cfg)
	if err != nil {
		return Result{}, err
	}
	return Result{Limit: b.cfg.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

var (
	_ Limiter = (*Bucket)(nil)
	_ Store   = (*MemoryStore)(nil)
	_ Store   = (*RedisStore)(nil)
)
