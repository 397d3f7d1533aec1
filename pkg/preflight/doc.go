// Package preflight verifies the environment a worker depends on before and
// while it processes tasks.
//
// A Checker runs named checks in registration order and stops at the first
// failure. Failures come in two kinds:
//
//   - transient: a dependency is unreachable or lagging. The error wraps
//     ErrCheckFailed and the caller may try again later.
//   - fatal: configuration drifted from what the process started with. The
//     error wraps ErrConfigDrift and IsFatal reports true. The process must
//     not keep running.
//
// Checks are plain func(context.Context) error values, so the health check
// closures of pkg/pg and pkg/redis plug in directly:
//
//	drift, err := preflight.ConfigFingerprint("/etc/app/config.env")
//	checker := preflight.New(preflight.WithTimeout(5*time.Second)).
//	    Add("postgres", pg.Healthcheck(pool)).
//	    Add("redis", redis.Healthcheck(client)).
//	    Add("config", drift)
//
//	if err := checker.Run(ctx); err != nil {
//	    if preflight.IsFatal(err) { ... }
//	}
package preflight
