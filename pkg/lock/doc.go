// Package lock provides the non-blocking, exclusive lock capability used to
// coordinate independent worker processes.
//
// A Lock is scoped to a single key (for the file backend the key is a file
// path). TryAcquire never waits: it reports false when another holder owns
// the key, which lets callers move on to the next candidate instead of
// queueing behind a competitor. Release must be called exactly once after a
// successful TryAcquire.
//
// # Backends
//
//   - File: flock(2) on an existing file. Locks are tied to the open file
//     description, so the kernel drops them when the holder process dies.
//     The file is never created by the lock; a missing file simply cannot be
//     locked.
//   - Memory: an in-process table. Every Lock value is a distinct holder,
//     which makes it suitable for simulating many processes in tests.
//   - Redis: SET NX PX with a per-lock ownership token and a
//     compare-and-delete release script, for workers on different hosts.
//
// # Usage
//
//	locks := lock.File()
//	l := locks("/var/spool/tasks/0001760000000.000000-000000.task")
//	ok, err := l.TryAcquire(ctx)
//	if err != nil || !ok {
//	    return
//	}
//	defer l.Release(ctx)
//
// # Error Handling
//
// ErrNotHeld is returned by Release when the lock is not held by the caller.
package lock
