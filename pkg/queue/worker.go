package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/spool/pkg/async"
	"github.com/dmitrymomot/spool/pkg/lock"
	"github.com/dmitrymomot/spool/pkg/logger"
	"github.com/dmitrymomot/spool/pkg/slot"
	"github.com/dmitrymomot/spool/pkg/spool"
)

// WorkerStore is the part of the spool a worker consumes.
type WorkerStore interface {
	GrabTask(ctx context.Context) (*spool.Task, error)
	AddTask(ctx context.Context, task spool.Task) (spool.Task, error)
}

// SlotRegistry bounds how many workers run at once.
type SlotRegistry interface {
	Acquire(ctx context.Context) (int, error)
	Holds(n int) bool
	Release(ctx context.Context, n int) error
}

// Preflight verifies the environment. *preflight.Checker implements it.
type Preflight interface {
	Run(ctx context.Context) error
}

// PreflightFunc adapts a function to Preflight.
type PreflightFunc func(ctx context.Context) error

func (f PreflightFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type noPreflight struct{}

func (noPreflight) Run(context.Context) error { return nil }

// Worker drains the spool from one slot. Each Run is one worker life:
// acquire a slot, claim and dispatch tasks, release the slot.
type Worker struct {
	cfg        Config
	store      WorkerStore
	slots      SlotRegistry
	preflight  Preflight
	dispatcher *Dispatcher
	logger     *slog.Logger
	now        func() time.Time
	onTimeout  func(ctx context.Context, event Event)
	workerID   uuid.UUID

	retire  atomic.Bool
	running atomic.Bool
	slot    atomic.Int64
}

// NewWorker creates a worker for cfg. Missing collaborators are built from
// cfg: a spool at cfg.Path and a slot registry at cfg.SlotsPath.
func NewWorker(cfg Config, opts ...WorkerOption) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &workerOptions{
		preflight:  noPreflight{},
		dispatcher: NewDispatcher(),
		locks:      lock.File(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.store == nil {
		s, err := spool.New(cfg.Path, spool.WithLocks(options.locks), spool.WithLogger(options.logger))
		if err != nil {
			return nil, err
		}
		options.store = s
	}
	if options.slots == nil {
		r, err := slot.NewRegistry(cfg.SlotsPath(), cfg.Workers,
			slot.WithLocks(options.locks), slot.WithLogger(options.logger))
		if err != nil {
			return nil, err
		}
		options.slots = r
	}

	w := &Worker{
		cfg:        cfg,
		store:      options.store,
		slots:      options.slots,
		preflight:  options.preflight,
		dispatcher: options.dispatcher,
		now:        options.now,
		onTimeout:  options.onTimeout,
		workerID:   uuid.New(),
	}
	w.logger = options.logger.With(logger.Component("worker"), logger.WorkerID(w.workerID))
	if w.onTimeout == nil {
		w.onTimeout = w.exitOnTimeout
	}
	w.retire.Store(options.retireWhenIdle)

	return w, nil
}

// ID returns the worker instance id.
func (w *Worker) ID() string {
	return w.workerID.String()
}

// Slot returns the slot held by a running worker, or 0.
func (w *Worker) Slot() int {
	return int(w.slot.Load())
}

// Retire asks the worker to exit once the spool has no eligible task.
// It is safe to call from any goroutine, including a signal handler.
func (w *Worker) Retire() {
	w.retire.Store(true)
}

// Run is one worker life. It returns nil without doing anything when no slot
// is free, and nil after a clean exit: lifetime reached, slot revoked,
// retired while idle, or ctx canceled.
//
// A preflight failure, an undeletable record, a task timeout or a handler
// failure ends the run with an error. The claimed task is requeued only when
// preflight fails after the claim; a task whose handler fails is lost.
func (w *Worker) Run(ctx context.Context) (err error) {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWorkerRunning
	}
	defer w.running.Store(false)

	n, err := w.slots.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("queue: acquire slot: %w", err)
	}
	if n == 0 {
		w.logger.DebugContext(ctx, "no free worker slot")
		return nil
	}

	w.slot.Store(int64(n))
	log := w.logger.With(logger.Slot(n))
	defer func() {
		w.slot.Store(0)
		// The run context may be canceled by now; the slot must still be freed.
		if rerr := w.slots.Release(context.WithoutCancel(ctx), n); rerr != nil {
			log.ErrorContext(ctx, "slot release failed", logger.Error(rerr))
		}
	}()

	if err := w.preflight.Run(ctx); err != nil {
		return fmt.Errorf("queue: preflight: %w", err)
	}

	if w.cfg.WorkerMemoryLimit > 0 {
		prev := debug.SetMemoryLimit(w.cfg.WorkerMemoryLimit)
		defer debug.SetMemoryLimit(prev)
	}

	started := w.now()
	log.InfoContext(ctx, "worker started")

	defer func() {
		stopping := Event{Name: EventWorkerStopping, Slot: n, WorkerID: w.ID()}
		if serr := w.dispatcher.Dispatch(context.WithoutCancel(ctx), stopping); serr != nil {
			err = errors.Join(err, serr)
		}
		log.InfoContext(ctx, "worker stopped", logger.Duration(w.now().Sub(started)))
	}()

	if err := w.dispatcher.Dispatch(ctx, Event{Name: EventWorkerStarted, Slot: n, WorkerID: w.ID()}); err != nil {
		return err
	}

	return w.loop(ctx, log, n, started.Add(w.cfg.WorkerLifetime))
}

func (w *Worker) loop(ctx context.Context, log *slog.Logger, n int, deadline time.Time) error {
	processed := 0
	defer func() {
		log.DebugContext(ctx, "worker loop finished", logger.Count(processed))
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if !w.now().Before(deadline) {
			log.InfoContext(ctx, "worker lifetime reached")
			return nil
		}
		if !w.slots.Holds(n) {
			log.WarnContext(ctx, "worker slot revoked")
			return nil
		}

		if err := w.preflight.Run(ctx); err != nil {
			return fmt.Errorf("queue: preflight: %w", err)
		}

		task, err := w.store.GrabTask(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("queue: claim task: %w", err)
		}

		if task == nil {
			if w.retire.Load() {
				log.InfoContext(ctx, "spool drained, retiring")
				return nil
			}
			w.idle(ctx, deadline)
			continue
		}

		// The environment may have drifted while we were claiming.
		if err := w.preflight.Run(ctx); err != nil {
			return errors.Join(fmt.Errorf("queue: preflight: %w", err), w.requeue(ctx, log, *task))
		}

		if err := w.process(ctx, log, n, *task); err != nil {
			return err
		}
		processed++
	}
}

// idle sleeps one poll interval, never past deadline.
func (w *Worker) idle(ctx context.Context, deadline time.Time) {
	wait := min(w.cfg.PollInterval, deadline.Sub(w.now()))
	if wait <= 0 {
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// requeue puts a claimed task back under its original scheduled time.
func (w *Worker) requeue(ctx context.Context, log *slog.Logger, t spool.Task) error {
	stored, err := w.store.AddTask(context.WithoutCancel(ctx), spool.Task{
		Type:        t.Type,
		ID:          t.ID,
		Data:        t.Data,
		ScheduledAt: t.ScheduledAt,
	})
	if err != nil {
		log.ErrorContext(ctx, "requeue failed, task lost",
			logger.TaskType(t.Type), logger.TaskID(t.ID), logger.Error(err))
		return fmt.Errorf("queue: requeue %s,%s: %w", t.Type, t.ID, err)
	}

	log.WarnContext(ctx, "task requeued after failed preflight",
		logger.TaskType(t.Type), logger.TaskID(t.ID), logger.Record(stored.Record))
	return nil
}

// process dispatches one claimed task under the task timeout.
func (w *Worker) process(ctx context.Context, log *slog.Logger, n int, t spool.Task) error {
	event := taskEvent(t, n, w.ID())
	log = log.With(logger.TaskType(t.Type), logger.TaskID(t.ID))
	start := time.Now()

	future := async.Async(ctx, event, func(ctx context.Context, e Event) (struct{}, error) {
		return struct{}{}, w.dispatcher.Dispatch(ctx, e)
	})

	_, err := future.AwaitWithTimeout(w.cfg.WorkerTaskTimeout)
	if errors.Is(err, async.ErrTimeout) && !future.IsComplete() {
		log.ErrorContext(ctx, "task exceeded timeout", logger.Duration(time.Since(start)))
		w.onTimeout(ctx, event)
		return fmt.Errorf("%w: %s,%s after %s", ErrTaskTimeout, t.Type, t.ID, w.cfg.WorkerTaskTimeout)
	}
	if err != nil {
		if !errors.Is(err, ErrHandlerFailed) {
			err = fmt.Errorf("%w: %s: %w", ErrHandlerFailed, event.Name, err)
		}
		log.ErrorContext(ctx, "task handler failed, task dropped",
			logger.Duration(time.Since(start)), logger.Error(err))
		return err
	}

	log.InfoContext(ctx, "task processed", logger.Duration(time.Since(start)))
	return nil
}

func (w *Worker) exitOnTimeout(ctx context.Context, event Event) {
	w.logger.ErrorContext(ctx, "terminating worker process on task timeout",
		logger.TaskType(event.Type), logger.TaskID(event.ID), logger.Slot(event.Slot))
	os.Exit(2)
}
