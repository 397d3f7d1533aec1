package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/spool/pkg/logger"
)

// Check inspects one dependency and returns nil when it is usable.
type Check func(ctx context.Context) error

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout bounds each check. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

type namedCheck struct {
	name  string
	check Check
}

// Checker runs a fixed list of checks.
type Checker struct {
	checks  []namedCheck
	timeout time.Duration
	logger  *slog.Logger
}

// New returns an empty Checker. An empty Checker always passes.
func New(opts ...Option) *Checker {
	c := &Checker{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("preflight"))
	return c
}

// Add registers a check. Nil checks are ignored.
func (c *Checker) Add(name string, check Check) *Checker {
	if check != nil {
		c.checks = append(c.checks, namedCheck{name: name, check: check})
	}
	return c
}

// Len returns the number of registered checks.
func (c *Checker) Len() int {
	return len(c.checks)
}

// Run executes the checks in order and returns the first failure.
func (c *Checker) Run(ctx context.Context) error {
	for _, nc := range c.checks {
		if err := c.run(ctx, nc); err != nil {
			c.logger.WarnContext(ctx, "preflight check failed",
				slog.String("check", nc.name), logger.Error(err))
			return err
		}
	}
	return nil
}

func (c *Checker) run(ctx context.Context, nc namedCheck) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err := nc.check(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConfigDrift):
		return fmt.Errorf("%s: %w", nc.name, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrCheckFailed, nc.name, err)
	}
}
