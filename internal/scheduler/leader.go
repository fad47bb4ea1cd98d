package scheduler

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// LeaderElector wraps a Postgres advisory lock so only one scheduler
// instance drives promotion and reclaim at a time. It is an
// optimization, not a correctness requirement — every scheduler
// operation is idempotent, so running it on more than one instance
// simultaneously wastes work but cannot corrupt state. Leadership is held
// across ticks on a single checked-out connection rather than
// re-acquired every tick.
type LeaderElector struct {
	pool   *pgxpool.Pool
	lockID int64
	conn   *pgxpool.Conn
}

func NewLeaderElector(pool *pgxpool.Pool, lockID int64) *LeaderElector {
	return &LeaderElector{pool: pool, lockID: lockID}
}

// TryAcquire attempts to become leader if not already. Advisory locks are
// session-scoped, so leadership is held by keeping one dedicated
// connection checked out of the pool for as long as this instance leads.
func (le *LeaderElector) TryAcquire(ctx context.Context) (bool, error) {
	if le.conn != nil {
		return true, nil
	}

	conn, err := le.pool.Acquire(ctx)
	if err != nil {
		return false, errors.Wrap(err, "scheduler: acquire connection for leader election")
	}

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, le.lockID).Scan(&ok); err != nil {
		conn.Release()
		return false, errors.Wrap(err, "scheduler: pg_try_advisory_lock")
	}
	if !ok {
		conn.Release()
		return false, nil
	}

	le.conn = conn
	return true, nil
}

func (le *LeaderElector) Held() bool {
	return le.conn != nil
}

// Release gives up leadership. It explicitly unlocks before returning
// the connection to the pool — pgxpool reuses live backend sessions, so
// without pg_advisory_unlock the lock would stay held by whichever
// caller the pool hands that connection to next.
func (le *LeaderElector) Release(ctx context.Context) {
	if le.conn == nil {
		return
	}
	if _, err := le.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, le.lockID); err != nil {
		// The connection may already be dead; closing it (rather than
		// returning it to the pool) still guarantees the lock is gone.
		le.conn.Conn().Close(ctx)
	}
	le.conn.Release()
	le.conn = nil
}
