// Package storage implements the durable store: the canonical job
// record, its history, and worker heartbeats, on top of Postgres via
// pgx/v5's connection pool. Every mutation a caller may need to retry
// under a partial failure is a single statement or a short explicit
// transaction — the store never holds a connection open across a
// coordination-store (Redis) round trip.
package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/enqio/enq/internal/domain"
)

const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Ping reports durable-store reachability for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// InsertParams is the validated input to Insert.
type InsertParams struct {
	ID                string
	Queue             string
	Type              string
	Priority          domain.Priority
	Payload           []byte
	MaxRetries        int
	VisibilityTimeout time.Duration
	IdempotencyKey    string
	ScheduledAt       *time.Time
}

// Insert persists a new job row in PENDING or SCHEDULED status depending
// on whether ScheduledAt is set and in the future. If p.IdempotencyKey is
// non-empty and already claimed by another row, Insert returns that
// existing row and idempotent=true instead of erroring.
func (s *Store) Insert(ctx context.Context, p InsertParams) (job *domain.Job, idempotent bool, err error) {
	status := domain.StatusPending
	if p.ScheduledAt != nil && p.ScheduledAt.After(time.Now()) {
		status = domain.StatusScheduled
	}

	var idemKey interface{}
	if p.IdempotencyKey != "" {
		idemKey = p.IdempotencyKey
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO jobs (
			id, queue, type, priority, status, payload,
			attempts, max_retries, visibility_timeout_ms,
			idempotency_key, scheduled_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6::jsonb,0,$7,$8,$9,$10,now())`,
		p.ID, p.Queue, p.Type, string(p.Priority), string(status), p.Payload,
		p.MaxRetries, p.VisibilityTimeout.Milliseconds(), idemKey, p.ScheduledAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && p.IdempotencyKey != "" {
			existing, getErr := s.GetByIdempotencyKey(ctx, p.IdempotencyKey)
			if getErr != nil {
				return nil, false, errors.Wrap(getErr, "storage: fetch existing idempotent job")
			}
			return existing, true, nil
		}
		return nil, false, errors.Wrap(err, "storage: insert job")
	}

	job, err = s.Get(ctx, p.ID)
	if err != nil {
		return nil, false, errors.Wrap(err, "storage: reload inserted job")
	}
	return job, false, nil
}

// Get loads a single job by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.db.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)
	return scanJob(row)
}

// GetByIdempotencyKey loads the job currently owning key, if any.
func (s *Store) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Job, error) {
	row := s.db.QueryRow(ctx, selectColumns+` WHERE idempotency_key = $1`, key)
	return scanJob(row)
}

// ListFilter narrows List.
type ListFilter struct {
	Queue  string
	Status string
	Limit  int
	Offset int
}

// List returns a page of jobs ordered newest-first, plus the total count
// matching the filter, for GET /jobs pagination.
func (s *Store) List(ctx context.Context, f ListFilter) ([]domain.Job, int, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	const where = `WHERE ($1 = '' OR queue = $1) AND ($2 = '' OR status = $2)`
	rows, err := s.db.Query(ctx, selectColumns+` `+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		f.Queue, f.Status, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "storage: list jobs")
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJobRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "storage: list jobs rows")
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM jobs `+where, f.Queue, f.Status).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "storage: count jobs")
	}
	return out, total, nil
}

// ListByStatus returns up to limit jobs for queue in status, oldest first.
// Used by the scheduler's orphan sweep.
func (s *Store) ListByStatus(ctx context.Context, queue string, status domain.Status, limit int) ([]domain.Job, error) {
	rows, err := s.db.Query(ctx, selectColumns+`
		WHERE queue = $1 AND status = $2
		ORDER BY created_at ASC LIMIT $3`, queue, string(status), limit)
	if err != nil {
		return nil, errors.Wrap(err, "storage: list by status")
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJobRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// Claim performs the conditional claim: it atomically increments
// attempts, moves the row to PROCESSING, and records the worker's
// lease. Zero affected rows (ErrConflict) means another worker, the
// scheduler, or a cancellation beat this one to the row — the caller is
// expected to treat that as the abandon-claim reconciliation path, not
// as a hard failure.
func (s *Store) Claim(ctx context.Context, id, workerID string) (*domain.Job, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE jobs
		   SET status = $3, locked_by = $2, locked_at = now(), attempts = attempts + 1
		 WHERE id = $1 AND status IN ($4, $5)`,
		id, workerID, string(domain.StatusProcessing), string(domain.StatusPending), string(domain.StatusFailed),
	)
	if err != nil {
		return nil, errors.Wrap(err, "storage: claim job")
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrConflict
	}
	return s.Get(ctx, id)
}

// CompleteSuccess transitions a PROCESSING job to COMPLETED with result.
func (s *Store) CompleteSuccess(ctx context.Context, id string, result []byte) (*domain.Job, error) {
	var resultArg interface{}
	if result != nil {
		resultArg = result
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE jobs
		   SET status = $2, result = $3::jsonb, locked_by = NULL, locked_at = NULL, completed_at = now()
		 WHERE id = $1 AND status = $4`,
		id, string(domain.StatusCompleted), resultArg, string(domain.StatusProcessing),
	)
	if err != nil {
		return nil, errors.Wrap(err, "storage: complete job")
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrConflict
	}
	return s.Get(ctx, id)
}

// FailRetryable transitions a PROCESSING job back to FAILED (will be
// promoted to PENDING by the scheduler once its delay elapses).
func (s *Store) FailRetryable(ctx context.Context, id, reason string) (*domain.Job, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE jobs
		   SET status = $2, error = $3, locked_by = NULL, locked_at = NULL
		 WHERE id = $1 AND status = $4`,
		id, string(domain.StatusFailed), reason, string(domain.StatusProcessing),
	)
	if err != nil {
		return nil, errors.Wrap(err, "storage: fail job")
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrConflict
	}
	return s.Get(ctx, id)
}

// FailDead transitions a PROCESSING job to the terminal DEAD status.
func (s *Store) FailDead(ctx context.Context, id, reason string) (*domain.Job, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE jobs
		   SET status = $2, error = $3, locked_by = NULL, locked_at = NULL, completed_at = now()
		 WHERE id = $1 AND status = $4`,
		id, string(domain.StatusDead), reason, string(domain.StatusProcessing),
	)
	if err != nil {
		return nil, errors.Wrap(err, "storage: dead-letter job")
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrConflict
	}
	return s.Get(ctx, id)
}

// CompleteExternal is the hand-off completion path: only valid from
// PROCESSING, driven by an external caller rather than a worker handler
// returning.
func (s *Store) CompleteExternal(ctx context.Context, id string) (*domain.Job, error) {
	return s.CompleteSuccess(ctx, id, nil)
}

// Cancel transitions a PENDING or SCHEDULED job to CANCELLED.
func (s *Store) Cancel(ctx context.Context, id string) (*domain.Job, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE jobs
		   SET status = $2, completed_at = now()
		 WHERE id = $1 AND status IN ($3, $4)`,
		id, string(domain.StatusCancelled), string(domain.StatusPending), string(domain.StatusScheduled),
	)
	if err != nil {
		return nil, errors.Wrap(err, "storage: cancel job")
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrConflict
	}
	return s.Get(ctx, id)
}

// Retry resets a FAILED, DEAD, or CANCELLED job back to PENDING.
func (s *Store) Retry(ctx context.Context, id string) (*domain.Job, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE jobs
		   SET status = $2, attempts = 0, error = NULL,
		       locked_by = NULL, locked_at = NULL, completed_at = NULL
		 WHERE id = $1 AND status IN ($3, $4, $5)`,
		id, string(domain.StatusPending),
		string(domain.StatusFailed), string(domain.StatusDead), string(domain.StatusCancelled),
	)
	if err != nil {
		return nil, errors.Wrap(err, "storage: retry job")
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrConflict
	}
	return s.Get(ctx, id)
}

// PromoteScheduled flips a SCHEDULED row to PENDING and clears
// scheduled_at, only if it is still SCHEDULED (it may have been
// cancelled during the delay).
func (s *Store) PromoteScheduled(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE jobs SET status = $2, scheduled_at = NULL
		 WHERE id = $1 AND status = $3`,
		id, string(domain.StatusPending), string(domain.StatusScheduled),
	)
	return errors.Wrap(err, "storage: promote scheduled job")
}

// ReclaimExpired performs a compare-and-swap reclaim: the UPDATE is
// guarded on the exact lockedAt the caller observed, so a concurrent
// finalize by the original worker (which changes status or lockedAt)
// wins the race instead of being silently clobbered.
func (s *Store) ReclaimExpired(ctx context.Context, id string, observedLockedAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE jobs
		   SET status = $2, locked_by = NULL, locked_at = NULL
		 WHERE id = $1 AND status = $3 AND locked_at = $4`,
		id, string(domain.StatusPending), string(domain.StatusProcessing), observedLockedAt,
	)
	if err != nil {
		return false, errors.Wrap(err, "storage: reclaim expired job")
	}
	return tag.RowsAffected() > 0, nil
}

// AppendHistory writes one audit row for jobID.
func (s *Store) AppendHistory(ctx context.Context, jobID string, status domain.Status, message, workerID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO job_history (job_id, status, message, worker_id, created_at)
		VALUES ($1,$2,$3,$4,now())`,
		jobID, string(status), message, workerID,
	)
	return errors.Wrap(err, "storage: append history")
}

// History returns a job's audit trail, oldest first.
func (s *Store) History(ctx context.Context, jobID string) ([]domain.JobHistory, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, job_id, status, coalesce(message, ''), coalesce(worker_id, ''), created_at
		  FROM job_history WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, errors.Wrap(err, "storage: history")
	}
	defer rows.Close()

	var out []domain.JobHistory
	for rows.Next() {
		var h domain.JobHistory
		var status string
		if err := rows.Scan(&h.ID, &h.JobID, &status, &h.Message, &h.WorkerID, &h.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "storage: scan history")
		}
		h.Status = domain.Status(status)
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpsertHeartbeat records liveness for a worker process.
func (s *Store) UpsertHeartbeat(ctx context.Context, hb domain.WorkerHeartbeat) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO worker_heartbeats (worker_id, hostname, queues, concurrency, active_jobs, started_at, last_heartbeat)
		VALUES ($1,$2,$3,$4,$5,$6,now())
		ON CONFLICT (worker_id) DO UPDATE
		   SET active_jobs = EXCLUDED.active_jobs, last_heartbeat = now()`,
		hb.WorkerID, hb.Hostname, hb.Queues, hb.Concurrency, hb.ActiveJobs, hb.StartedAt,
	)
	return errors.Wrap(err, "storage: upsert heartbeat")
}

// PruneStaleHeartbeats deletes heartbeats not refreshed within
// olderThan.
func (s *Store) PruneStaleHeartbeats(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM worker_heartbeats WHERE last_heartbeat < now() - make_interval(secs => $1)`,
		olderThan.Seconds())
	if err != nil {
		return 0, errors.Wrap(err, "storage: prune heartbeats")
	}
	return tag.RowsAffected(), nil
}

const selectColumns = `
	SELECT id, queue, type, priority, status, payload, coalesce(result, 'null'::jsonb), coalesce(error, ''),
	       attempts, max_retries, visibility_timeout_ms, coalesce(idempotency_key, ''),
	       scheduled_at, coalesce(locked_by, ''), locked_at, created_at, completed_at
	  FROM jobs`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	j, err := scanJobRows(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return j, err
}

func scanJobRows(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	var priority, status string
	var visibilityMS int64
	var result []byte
	if err := row.Scan(
		&j.ID, &j.Queue, &j.Type, &priority, &status, &j.Payload, &result, &j.Error,
		&j.Attempts, &j.MaxRetries, &visibilityMS, &j.IdempotencyKey,
		&j.ScheduledAt, &j.LockedBy, &j.LockedAt, &j.CreatedAt, &j.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "storage: scan job")
	}
	j.Priority = domain.Priority(priority)
	j.Status = domain.Status(status)
	j.VisibilityTimeout = time.Duration(visibilityMS) * time.Millisecond
	if string(result) != "null" {
		j.Result = result
	}
	return &j, nil
}
