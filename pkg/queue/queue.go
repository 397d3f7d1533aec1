package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/spool/pkg/lock"
	"github.com/dmitrymomot/spool/pkg/logger"
	"github.com/dmitrymomot/spool/pkg/slot"
	"github.com/dmitrymomot/spool/pkg/spool"
	"github.com/dmitrymomot/spool/pkg/token"
)

// Status is the operational view of a queue.
type Status struct {
	Current    int `json:"current"`
	Future     int `json:"future"`
	Total      int `json:"total"`
	Workers    int `json:"workers"`
	MaxWorkers int `json:"max_workers"`
}

// Queue wires the spool, slot registry and token registry under one root and
// exposes the operational surface used by producers and ops tooling.
type Queue struct {
	cfg    Config
	locks  lock.Factory
	logger *slog.Logger
	now    func() time.Time

	spool    *spool.Spool
	slots    *slot.Registry
	tokens   *token.Registry
	enqueuer *Enqueuer
}

// New opens the queue described by cfg, creating its directories.
func New(cfg Config, opts ...Option) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	q := &Queue{
		cfg:    cfg,
		locks:  lock.File(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}

	var err error
	q.spool, err = spool.New(cfg.Path,
		spool.WithLocks(q.locks), spool.WithClock(q.now), spool.WithLogger(q.logger))
	if err != nil {
		return nil, err
	}

	q.slots, err = slot.NewRegistry(cfg.SlotsPath(), cfg.Workers,
		slot.WithLocks(q.locks), slot.WithLogger(q.logger))
	if err != nil {
		return nil, err
	}

	q.tokens, err = token.NewRegistry(cfg.TokensPath())
	if err != nil {
		return nil, err
	}

	q.enqueuer, err = NewEnqueuer(q.spool,
		WithEnqueuerLogger(q.logger), WithEnqueuerClock(q.now), WithBatchLimit(cfg.BatchLimit))
	if err != nil {
		return nil, err
	}

	return q, nil
}

// Config returns the configuration the queue was opened with.
func (q *Queue) Config() Config { return q.cfg }

// Spool returns the underlying task spool.
func (q *Queue) Spool() *spool.Spool { return q.spool }

// Slots returns the worker slot registry.
func (q *Queue) Slots() *slot.Registry { return q.slots }

// Enqueuer returns the producer side of the queue.
func (q *Queue) Enqueuer() *Enqueuer { return q.enqueuer }

// Enqueue stores a task and reports whether it was stored.
func (q *Queue) Enqueue(ctx context.Context, taskType, id string, opts ...EnqueueOption) bool {
	return q.enqueuer.Enqueue(ctx, taskType, id, opts...)
}

// Add stores a task and returns it as persisted.
func (q *Queue) Add(ctx context.Context, taskType, id string, opts ...EnqueueOption) (spool.Task, error) {
	return q.enqueuer.Add(ctx, taskType, id, opts...)
}

// EnqueueBatch imports items through the shared enqueuer.
func (q *Queue) EnqueueBatch(ctx context.Context, items []BatchItem) (int, error) {
	return q.enqueuer.EnqueueBatch(ctx, items)
}

// NewWorker builds a worker sharing this queue's spool and slots.
// Options given here override the shared ones.
func (q *Queue) NewWorker(opts ...WorkerOption) (*Worker, error) {
	base := []WorkerOption{
		WithStore(q.spool),
		WithSlots(q.slots),
		WithWorkerLocks(q.locks),
		WithWorkerLogger(q.logger),
		WithWorkerClock(q.now),
	}
	return NewWorker(q.cfg, append(base, opts...)...)
}

// Status reports task and worker counts. Parts that cannot be read count
// as zero.
func (q *Queue) Status(ctx context.Context) Status {
	st := Status{MaxWorkers: q.cfg.Workers}

	counts, err := q.spool.Counts(ctx)
	if err != nil {
		q.logger.WarnContext(ctx, "task counts unavailable", logger.Error(err))
	} else {
		st.Current, st.Future, st.Total = counts.Current, counts.Future, counts.Total
	}

	held, err := q.slots.CountHeld(ctx)
	if err != nil {
		q.logger.WarnContext(ctx, "worker count unavailable", logger.Error(err))
	} else {
		st.Workers = held
	}

	return st
}

// ReleaseSlot frees slot n. Without force only a slot held by this queue's
// own workers can be released. With force an abandoned slot held by nobody
// is cleared; a live holder elsewhere is left alone and false is returned.
func (q *Queue) ReleaseSlot(ctx context.Context, n int, force bool) (bool, error) {
	if force {
		return q.slots.ForceRelease(ctx, n)
	}
	if err := q.slots.Release(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}

// Tokens lists the producer tokens, creating the first one on demand.
func (q *Queue) Tokens(ctx context.Context) ([]string, error) {
	return q.tokens.List(ctx)
}

// ValidToken reports whether tok authorizes task submission.
func (q *Queue) ValidToken(ctx context.Context, tok string) bool {
	return q.tokens.Valid(ctx, tok)
}
