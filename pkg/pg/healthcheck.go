package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Pinger is satisfied by *pgxpool.Pool and *pgx.Conn.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Querier is satisfied by *pgxpool.Pool and *pgx.Conn.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Healthcheck returns a closure that validates database connectivity.
// The closure matches preflight.Check and plain health endpoints alike.
func Healthcheck(conn Pinger) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := conn.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// replicaLagQuery yields zero on a primary and the replay delay in seconds on
// a standby.
const replicaLagQuery = `SELECT CASE WHEN pg_is_in_recovery()
	THEN COALESCE(EXTRACT(EPOCH FROM now() - pg_last_xact_replay_timestamp()), 0)
	ELSE 0 END::float8`

// ReplicationLag reports how far the connected server trails its primary.
func ReplicationLag(ctx context.Context, q Querier) (time.Duration, error) {
	var seconds float64
	if err := q.QueryRow(ctx, replicaLagQuery).Scan(&seconds); err != nil {
		return 0, errors.Join(ErrHealthcheckFailed, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// ReplicaLagCheck returns a closure that fails when replication lag exceeds
// maxLag. A non-positive maxLag disables the check.
func ReplicaLagCheck(q Querier, maxLag time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		if maxLag <= 0 {
			return nil
		}
		lag, err := ReplicationLag(ctx, q)
		if err != nil {
			return err
		}
		if lag > maxLag {
			return fmt.Errorf("%w: %s > %s", ErrReplicaLagging, lag, maxLag)
		}
		return nil
	}
}
