package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// MemoryStore keeps buckets in process memory. Buckets idle for longer than
// the stale threshold are swept on access, at most once per threshold.
type MemoryStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	staleTTL  time.Duration
	lastSweep time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithStaleAfter sets how long an unused bucket is kept. Zero keeps
// buckets forever.
func WithStaleAfter(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.staleTTL = d
	}
}

// WithMemoryClock overrides the time source.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:  make(map[string]*bucket),
		now:      time.Now,
		staleTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(ms)
	}
	ms.lastSweep = ms.now()
	return ms
}

func (ms *MemoryStore) Consume(_ context.Context, key string, n int, cfg Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	ms.sweep(now)

	b, ok := ms.buckets[key]
	if !ok {
		b = &bucket{tokens: cfg.Capacity, lastRefill: now}
		ms.buckets[key] = b
	}
	b.tokens, b.lastRefill = refill(b.tokens, b.lastRefill, now, cfg)
	b.lastAccess = now

	remaining := b.tokens - n
	if remaining >= 0 {
		b.tokens = remaining
	}
	return remaining, b.lastRefill.Add(cfg.RefillInterval), nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	delete(ms.buckets, key)
	ms.mu.Unlock()
	return nil
}

// Len returns the number of tracked buckets.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.buckets)
}

func (ms *MemoryStore) sweep(now time.Time) {
	if ms.staleTTL <= 0 || now.Sub(ms.lastSweep) < ms.staleTTL {
		return
	}
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > ms.staleTTL {
			delete(ms.buckets, key)
		}
	}
	ms.lastSweep = now
}
