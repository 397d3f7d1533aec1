package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/spool/pkg/lock"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	store          WorkerStore
	slots          SlotRegistry
	preflight      Preflight
	dispatcher     *Dispatcher
	locks          lock.Factory
	logger         *slog.Logger
	now            func() time.Time
	retireWhenIdle bool
	onTimeout      func(ctx context.Context, event Event)
}

// WithStore sets the task store. Defaults to a spool at Config.Path.
func WithStore(store WorkerStore) WorkerOption {
	return func(o *workerOptions) {
		if store != nil {
			o.store = store
		}
	}
}

// WithSlots sets the slot registry. Defaults to Config.SlotsPath with
// Config.Workers slots.
func WithSlots(slots SlotRegistry) WorkerOption {
	return func(o *workerOptions) {
		if slots != nil {
			o.slots = slots
		}
	}
}

// WithPreflight sets the environment checks run before and during work
func WithPreflight(p Preflight) WorkerOption {
	return func(o *workerOptions) {
		if p != nil {
			o.preflight = p
		}
	}
}

// WithDispatcher sets the event dispatcher
func WithDispatcher(d *Dispatcher) WorkerOption {
	return func(o *workerOptions) {
		if d != nil {
			o.dispatcher = d
		}
	}
}

// WithWorkerLocks sets the lock backend for the default store and slots
func WithWorkerLocks(f lock.Factory) WorkerOption {
	return func(o *workerOptions) {
		if f != nil {
			o.locks = f
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithWorkerClock overrides the time source for the lifetime bound
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(o *workerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRetireWhenIdle makes the worker exit once the spool has no eligible task
func WithRetireWhenIdle() WorkerOption {
	return func(o *workerOptions) {
		o.retireWhenIdle = true
	}
}

// WithTaskTimeoutHook replaces the action taken when a task outlives
// Config.WorkerTaskTimeout. The default logs and exits the process with
// status 2. If the hook returns, Run fails with ErrTaskTimeout.
func WithTaskTimeoutHook(fn func(ctx context.Context, event Event)) WorkerOption {
	return func(o *workerOptions) {
		if fn != nil {
			o.onTimeout = fn
		}
	}
}
