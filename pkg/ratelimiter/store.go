package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state.
type Store interface {
	// Consume refills the bucket for key, takes n tokens and returns what is
	// left. A negative remainder means the request must be refused; the
	// tokens are not taken in that case. n == 0 only refills.
	Consume(ctx context.Context, key string, n int, cfg Config) (remaining int, resetAt time.Time, err error)

	// Reset forgets key.
	Reset(ctx context.Context, key string) error
}

// refill returns the token count after the intervals elapsed since last,
// and the new refill mark.
func refill(tokens int, last, now time.Time, cfg Config) (int, time.Time) {
	if tokens >= cfg.Capacity {
		return cfg.Capacity, now
	}
	intervals := int64(now.Sub(last) / cfg.RefillInterval)
	if intervals <= 0 {
		return tokens, last
	}
	// Bounded so the multiplication cannot overflow.
	intervals = min(intervals, int64(cfg.Capacity/cfg.RefillRate+1))
	tokens = min(tokens+int(intervals)*cfg.RefillRate, cfg.Capacity)
	return tokens, last.Add(time.Duration(intervals) * cfg.RefillInterval)
}
