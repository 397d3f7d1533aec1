// Package pg connects to PostgreSQL with pgx/v5 and exposes the checks a
// worker runs before touching tasks that depend on the database.
//
// Config is populated from PG_* environment variables via caarlos0/env.
// Connect opens a *pgxpool.Pool, retrying with a growing pause until the
// database answers a ping.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	checker.Add("postgres", pg.Healthcheck(pool)).
//	    Add("replica-lag", pg.ReplicaLagCheck(pool, 30*time.Second))
//
// ReplicaLagCheck measures the replay delay reported by a standby; on a
// primary the lag is always zero.
package pg
