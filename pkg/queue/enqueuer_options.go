package queue

import (
	"log/slog"
	"time"
)

// EnqueuerOption is a functional option for configuring an Enqueuer
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	logger     *slog.Logger
	now        func() time.Time
	batchLimit int
}

// WithEnqueuerLogger sets the logger for failed enqueues
func WithEnqueuerLogger(logger *slog.Logger) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEnqueuerClock overrides the time source used for delays
func WithEnqueuerClock(now func() time.Time) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBatchLimit sets how many current tasks may be pending before
// EnqueueBatch refuses. Zero disables the check.
func WithBatchLimit(n int) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if n >= 0 {
			o.batchLimit = n
		}
	}
}

// EnqueueOption is a functional option for the Enqueue methods
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	data        map[string]any
	delay       time.Duration
	scheduledAt *time.Time
}

// WithData attaches a structured payload to the task
func WithData(data map[string]any) EnqueueOption {
	return func(o *enqueueOptions) {
		o.data = data
	}
}

// WithDelay postpones the task by delay from now
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithScheduledAt sets the exact time the task becomes eligible.
// It takes precedence over WithDelay.
func WithScheduledAt(scheduledAt time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.scheduledAt = &scheduledAt
	}
}
