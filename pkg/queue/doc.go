// Package queue runs workers that drain a filesystem spool of tasks, and
// exposes the producer and operator side of that spool.
//
// The package is organised around four components:
//
//   - Enqueuer   adds tasks, singly, idempotently or in bulk
//   - Dispatcher routes events to handlers by name, with a wildcard for tasks
//   - Worker     one worker life: slot, claim, dispatch, repeat, release
//   - Queue      wires spool, slots and tokens under one root for callers
//
// Workers are independent processes coordinating only through the spool
// directory. Each takes a numbered slot from pkg/slot, so at most
// Config.Workers run at once, and claims tasks through pkg/spool, so no task
// is handed to two workers.
//
// # Worker life
//
// Run acquires the lowest free slot and returns nil straight away when there
// is none. It runs preflight, fires EventWorkerStarted and then loops until
// Config.WorkerLifetime has passed:
//
//  1. exit if the slot was revoked (its file deleted or replaced)
//  2. run preflight, abort on failure
//  3. claim the oldest eligible task; when there is none, exit if retiring,
//     otherwise sleep Config.PollInterval
//  4. run preflight again; on failure put the claimed task back unchanged
//     and abort
//  5. dispatch "task.<type>" under Config.WorkerTaskTimeout
//
// On the way out it fires EventWorkerStopping and releases the slot.
//
// A handler error or panic ends the run. The task was already removed from
// the spool and is not retried. A task exceeding the timeout triggers the
// timeout hook, which by default terminates the process.
//
// # Usage
//
//	cfg := queue.DefaultConfig("/var/spool/app")
//	q, err := queue.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	q.Enqueue(ctx, "commit", "100", queue.WithData(map[string]any{"repo": "core"}))
//
//	type commit struct {
//	    Repo string `json:"repo"`
//	}
//
//	d := queue.NewDispatcher().
//	    OnTask("commit", queue.NewTaskHandler(func(ctx context.Context, e queue.Event, c commit) error {
//	        return index(ctx, c.Repo, e.ID)
//	    })).
//	    On(queue.EventWorkerStarted, queue.HandlerFunc(func(ctx context.Context, e queue.Event) error {
//	        if e.Slot != 1 {
//	            return nil
//	        }
//	        return warmCaches(ctx)
//	    }))
//
//	w, err := q.NewWorker(queue.WithDispatcher(d), queue.WithPreflight(checker))
//	if err != nil {
//	    return err
//	}
//	return w.Run(ctx)
//
// # Configuration
//
// Config is populated from QUEUE_* environment variables via pkg/config and
// validated with go-playground/validator. DefaultConfig gives the same
// defaults in code.
package queue
