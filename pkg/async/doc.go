// Package async runs a computation in its own goroutine and lets the caller
// wait for it with an upper bound.
//
// Async returns a *Future immediately. Await blocks until completion,
// AwaitWithTimeout gives up after a deadline with ErrTimeout, and IsComplete
// polls. A panic inside the computation is recovered and reported as an
// error wrapping ErrPanic.
//
//	future := async.Async(ctx, task, func(ctx context.Context, t Task) (struct{}, error) {
//	    return struct{}{}, handle(ctx, t)
//	})
//	if _, err := future.AwaitWithTimeout(30 * time.Minute); errors.Is(err, async.ErrTimeout) {
//	    // the computation is still running
//	}
//
// A pre-canceled context completes the Future with the context error without
// running the computation.
package async
