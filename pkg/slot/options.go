package slot

import (
	"log/slog"

	"github.com/dmitrymomot/spool/pkg/lock"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLocks sets the slot lock backend. Defaults to lock.File.
func WithLocks(f lock.Factory) Option {
	return func(r *Registry) {
		if f != nil {
			r.locks = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}
