package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/spool/pkg/logger"
	"github.com/dmitrymomot/spool/pkg/spool"
)

// EnqueuerStore is the part of the spool producers need.
type EnqueuerStore interface {
	AddTask(ctx context.Context, task spool.Task) (spool.Task, error)
	Tasks(ctx context.Context) ([]spool.Task, error)
	Counts(ctx context.Context) (spool.Counts, error)
}

// BatchItem is one task of a bulk import.
type BatchItem struct {
	Type        string
	ID          string
	Data        map[string]any
	ScheduledAt time.Time // zero means now
}

// Enqueuer adds tasks to the spool.
type Enqueuer struct {
	store      EnqueuerStore
	logger     *slog.Logger
	now        func() time.Time
	batchLimit int
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(store EnqueuerStore, opts ...EnqueuerOption) (*Enqueuer, error) {
	if store == nil {
		return nil, ErrStoreNil
	}

	options := &enqueuerOptions{
		logger:     slog.Default(),
		now:        time.Now,
		batchLimit: 1000,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		store:      store,
		logger:     options.logger.With(logger.Component("enqueuer")),
		now:        options.now,
		batchLimit: options.batchLimit,
	}, nil
}

// Enqueue stores a task and reports whether it was stored.
// Failures are logged, never returned.
func (e *Enqueuer) Enqueue(ctx context.Context, taskType, id string, opts ...EnqueueOption) bool {
	_, err := e.Add(ctx, taskType, id, opts...)
	return err == nil
}

// Add stores a task and returns it as persisted.
func (e *Enqueuer) Add(ctx context.Context, taskType, id string, opts ...EnqueueOption) (spool.Task, error) {
	task, err := e.build(taskType, id, opts)
	if err == nil {
		task, err = e.store.AddTask(ctx, task)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "enqueue failed",
			logger.TaskType(taskType), logger.TaskID(id), logger.Error(err))
		return spool.Task{}, err
	}

	e.logger.DebugContext(ctx, "task enqueued",
		logger.TaskType(task.Type), logger.TaskID(task.ID), logger.Record(task.Record))
	return task, nil
}

// EnqueueUnique stores a task unless one with the same type and id is
// already pending. It reports whether a record was added.
func (e *Enqueuer) EnqueueUnique(ctx context.Context, taskType, id string, opts ...EnqueueOption) (bool, error) {
	pending, err := e.pending(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := pending[taskKey{taskType, id}]; ok {
		return false, nil
	}

	if _, err := e.Add(ctx, taskType, id, opts...); err != nil {
		return false, err
	}
	return true, nil
}

// EnqueueBatch imports items, skipping any whose type and id are already
// pending or repeated earlier in the batch. It refuses with ErrBacklogged
// while more current tasks than the batch limit wait, and stops at the first
// store failure. It returns how many tasks were added.
func (e *Enqueuer) EnqueueBatch(ctx context.Context, items []BatchItem) (int, error) {
	if len(items) == 0 {
		return 0, ErrNoItems
	}

	if e.batchLimit > 0 {
		counts, err := e.store.Counts(ctx)
		if err != nil {
			return 0, fmt.Errorf("queue: count tasks: %w", err)
		}
		if counts.Current > e.batchLimit {
			e.logger.WarnContext(ctx, "batch import refused",
				logger.Count(counts.Current), slog.Int("limit", e.batchLimit))
			return 0, fmt.Errorf("%w: %d current, limit %d", ErrBacklogged, counts.Current, e.batchLimit)
		}
	}

	seen, err := e.pending(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, item := range items {
		key := taskKey{item.Type, item.ID}
		if _, ok := seen[key]; ok {
			continue
		}

		opts := []EnqueueOption{WithData(item.Data)}
		if !item.ScheduledAt.IsZero() {
			opts = append(opts, WithScheduledAt(item.ScheduledAt))
		}
		if _, err := e.Add(ctx, item.Type, item.ID, opts...); err != nil {
			return added, err
		}
		seen[key] = struct{}{}
		added++
	}

	e.logger.InfoContext(ctx, "batch imported", logger.Count(added), slog.Int("skipped", len(items)-added))
	return added, nil
}

type taskKey struct{ typ, id string }

func (e *Enqueuer) pending(ctx context.Context) (map[taskKey]struct{}, error) {
	tasks, err := e.store.Tasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: list tasks: %w", err)
	}
	keys := make(map[taskKey]struct{}, len(tasks))
	for _, t := range tasks {
		keys[taskKey{t.Type, t.ID}] = struct{}{}
	}
	return keys, nil
}

func (e *Enqueuer) build(taskType, id string, opts []EnqueueOption) (spool.Task, error) {
	if taskType == "" {
		return spool.Task{}, ErrInvalidTask
	}

	options := &enqueueOptions{}
	for _, opt := range opts {
		opt(options)
	}

	task := spool.Task{Type: taskType, ID: id, Data: options.data}
	switch {
	case options.scheduledAt != nil:
		task.ScheduledAt = *options.scheduledAt
	case options.delay > 0:
		task.ScheduledAt = e.now().Add(options.delay)
	}
	return task, nil
}
