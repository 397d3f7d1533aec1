package ratelimiter

import (
	"fmt"
	"time"
)

// Config defines a token bucket. Capacity is the burst size; RefillRate
// tokens are added every RefillInterval.
type Config struct {
	Capacity       int           `env:"API_RATE_CAPACITY" envDefault:"120"`
	RefillRate     int           `env:"API_RATE_REFILL" envDefault:"2"`
	RefillInterval time.Duration `env:"API_RATE_INTERVAL" envDefault:"1s"`
}

func (c Config) validate() error {
	switch {
	case c.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	case c.RefillRate <= 0:
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	case c.RefillInterval < time.Millisecond:
		return fmt.Errorf("%w: refill interval must be at least 1ms, got %s", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result is the bucket state after a request.
type Result struct {
	Limit     int
	Remaining int // negative when the request was refused
	ResetAt   time.Time
}

// Allowed reports whether the request fit in the bucket.
func (r Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long a refused caller should wait, measured from now.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(r.ResetAt.Sub(now), 0)
}
