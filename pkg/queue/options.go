package queue

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/spool/pkg/lock"
)

// Option configures a Queue.
type Option func(*Queue)

// WithLocks sets the lock backend shared by the spool and slot registry
func WithLocks(f lock.Factory) Option {
	return func(q *Queue) {
		if f != nil {
			q.locks = f
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}
