package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	r "github.com/redis/go-redis/v9"

	"github.com/enqio/enq/internal/domain"
)

// Coordinator is the Redis-backed coordination layer: priority dispatch
// ordering, the retry/delayed index, and dead-letter/poison-pill
// bookkeeping, all built on the atomic Lua scripts in scripts.go.
type Coordinator struct {
	rdb r.Cmdable

	dequeueScript   *r.Script
	moveToDLQScript *r.Script
	promoteScript   *r.Script
	trackFailScript *r.Script
}

// New wraps any redis.Cmdable — a *redis.Ring in production, a
// *redis.Client in a single-node dev setup, or a *redis.Client against
// REDIS_ADDR in the integration tests.
func New(rdb r.Cmdable) *Coordinator {
	return &Coordinator{
		rdb:             rdb,
		dequeueScript:   r.NewScript(dequeueLua),
		moveToDLQScript: r.NewScript(moveToDLQLua),
		promoteScript:   r.NewScript(promoteDueLua),
		trackFailScript: r.NewScript(trackFailureLua),
	}
}

// Ping reports coordination-store reachability for the health endpoint.
func (c *Coordinator) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Enqueue adds id to the waiting set with a priority-weighted score.
// Calling it again for the same id updates its score to the current
// instant — deliberately idempotent-as-requeue, used both by fresh
// intake and by the scheduler's promote/reclaim paths.
func (c *Coordinator) Enqueue(ctx context.Context, queue, id string, p domain.Priority) error {
	s := score(p, time.Now())
	return errors.Wrap(c.rdb.ZAdd(ctx, waitingKey(queue), r.Z{Score: s, Member: id}).Err(), "queue: enqueue")
}

// Dequeue atomically pops the lowest-scored id from waiting(Q) and adds
// it to processing(Q), guaranteeing at-most-one worker holds it at the
// coordination layer. Returns "", nil if empty.
func (c *Coordinator) Dequeue(ctx context.Context, queue string) (string, error) {
	res, err := c.dequeueScript.Run(ctx, c.rdb, []string{waitingKey(queue), processingKey(queue)}).Result()
	if errors.Is(err, r.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "queue: dequeue")
	}
	id, ok := res.(string)
	if !ok {
		return "", nil
	}
	return id, nil
}

// Ack removes id from processing(Q). Called on every terminal transition:
// success, fail-retry, dead, cancel, or the non-eligibility
// reconciliation path when a claim was abandoned.
func (c *Coordinator) Ack(ctx context.Context, queue, id string) error {
	return errors.Wrap(c.rdb.SRem(ctx, processingKey(queue), id).Err(), "queue: ack")
}

// RemoveWaiting removes id from waiting(Q), used when cancelling a
// PENDING job.
func (c *Coordinator) RemoveWaiting(ctx context.Context, queue, id string) error {
	return errors.Wrap(c.rdb.ZRem(ctx, waitingKey(queue), id).Err(), "queue: remove waiting")
}

// ScheduleRetry inserts id into delayed(Q) with score now+delay. Returns
// the delay actually used (base*2^attempt+jitter).
func (c *Coordinator) ScheduleRetry(ctx context.Context, queue, id string, attempt int, baseDelay time.Duration) (time.Duration, error) {
	delay := Backoff(attempt, baseDelay)
	promoteAt := float64(time.Now().Add(delay).UnixMilli())
	err := c.rdb.ZAdd(ctx, delayedKey(queue), r.Z{Score: promoteAt, Member: id}).Err()
	return delay, errors.Wrap(err, "queue: schedule retry")
}

// ScheduleAt inserts id into delayed(Q) with score equal to at, used by
// Intake for a job created with a future scheduledAt.
func (c *Coordinator) ScheduleAt(ctx context.Context, queue, id string, at time.Time) error {
	return errors.Wrap(c.rdb.ZAdd(ctx, delayedKey(queue), r.Z{Score: float64(at.UnixMilli()), Member: id}).Err(), "queue: schedule at")
}

// RemoveDelayed removes id from delayed(Q), used when cancelling a
// SCHEDULED job — symmetric with RemoveWaiting so a cancelled job never
// lingers in either index.
func (c *Coordinator) RemoveDelayed(ctx context.Context, queue, id string) error {
	return errors.Wrap(c.rdb.ZRem(ctx, delayedKey(queue), id).Err(), "queue: remove delayed")
}

// PromoteDue pops every id from delayed(Q) whose score is <= now and
// returns them. The caller is responsible for re-deriving each id's
// current status and priority from the durable store before
// re-enqueuing — the pop here is unconditional.
func (c *Coordinator) PromoteDue(ctx context.Context, queue string, now time.Time) ([]string, error) {
	res, err := c.promoteScript.Run(ctx, c.rdb, []string{delayedKey(queue)}, now.UnixMilli()).StringSlice()
	if err != nil {
		return nil, errors.Wrap(err, "queue: promote due")
	}
	return res, nil
}

// ProcessingMembers lists every id currently claimed in processing(Q),
// for the scheduler's visibility-timeout reclaim sweep.
func (c *Coordinator) ProcessingMembers(ctx context.Context, queue string) ([]string, error) {
	res, err := c.rdb.SMembers(ctx, processingKey(queue)).Result()
	return res, errors.Wrap(err, "queue: processing members")
}

// MoveToDLQ atomically removes id from processing(Q) and appends it to
// dlq(Q). The caller writes the DEAD status and history row in the
// durable store separately.
func (c *Coordinator) MoveToDLQ(ctx context.Context, queue, id string) error {
	err := c.moveToDLQScript.Run(ctx, c.rdb, []string{processingKey(queue), dlqKey(queue)}, id).Err()
	return errors.Wrap(err, "queue: move to dlq")
}

// DLQIDs returns up to limit ids from dlq(Q), oldest first.
func (c *Coordinator) DLQIDs(ctx context.Context, queue string, limit int64) ([]string, error) {
	res, err := c.rdb.LRange(ctx, dlqKey(queue), 0, limit-1).Result()
	return res, errors.Wrap(err, "queue: dlq members")
}

// RemoveFromDLQ removes id from dlq(Q) if present, used by Intake.Retry.
func (c *Coordinator) RemoveFromDLQ(ctx context.Context, queue, id string) error {
	return errors.Wrap(c.rdb.LRem(ctx, dlqKey(queue), 0, id).Err(), "queue: remove from dlq")
}

// TrackFailure records a failure timestamp, trims entries older than the
// poison-detection window, and refreshes the key's TTL. Returns the
// post-trim count; the caller compares it against the configured
// threshold to decide whether the job is a poison pill.
func (c *Coordinator) TrackFailure(ctx context.Context, jobID string, now time.Time, window time.Duration) (int64, error) {
	ttlSeconds := int64(window/time.Second) + 10
	nonce := uuid.NewString()
	res, err := c.trackFailScript.Run(ctx, c.rdb, []string{poisonKey(jobID)},
		now.UnixMilli(), window.Milliseconds(), ttlSeconds, nonce,
	).Int64()
	if err != nil {
		return 0, errors.Wrap(err, "queue: track failure")
	}
	return res, nil
}

// QueueDepths reports the size of each index for a queue, used by the
// /queues/{name}/stats endpoint and the queue-depth gauge.
type QueueDepths struct {
	Waiting    int64
	Processing int64
	Delayed    int64
	DLQ        int64
}

func (c *Coordinator) QueueDepths(ctx context.Context, queue string) (QueueDepths, error) {
	pipe := c.rdb.Pipeline()
	waiting := pipe.ZCard(ctx, waitingKey(queue))
	processing := pipe.SCard(ctx, processingKey(queue))
	delayed := pipe.ZCard(ctx, delayedKey(queue))
	dlq := pipe.LLen(ctx, dlqKey(queue))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, r.Nil) {
		return QueueDepths{}, errors.Wrap(err, "queue: depths")
	}
	return QueueDepths{
		Waiting:    waiting.Val(),
		Processing: processing.Val(),
		Delayed:    delayed.Val(),
		DLQ:        dlq.Val(),
	}, nil
}
