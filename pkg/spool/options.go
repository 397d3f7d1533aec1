package spool

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/spool/pkg/lock"
)

// Option configures a Spool.
type Option func(*options)

type options struct {
	locks  lock.Factory
	now    func() time.Time
	logger *slog.Logger
}

// WithLocks sets the per-record lock backend. Defaults to lock.File.
func WithLocks(f lock.Factory) Option {
	return func(o *options) {
		if f != nil {
			o.locks = f
		}
	}
}

// WithClock overrides the time source used for eligibility and default scheduling.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
