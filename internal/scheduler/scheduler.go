// Package scheduler implements the periodic promotion/reclaim loop:
// promoting due-delayed jobs back into waiting(Q), and reclaiming jobs
// whose processing lease expired.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/enqio/enq/internal/domain"
	"github.com/enqio/enq/internal/metrics"
	"github.com/enqio/enq/internal/queue"
	"github.com/enqio/enq/internal/storage"
)

// defaultLockID is the pg_advisory_lock key used for leader election.
// Arbitrary but fixed, so every scheduler process in a fleet contends
// for the same lock.
const defaultLockID int64 = 42

// orphanSweepEveryTicks controls how often (in ticks) the scheduler runs
// the orphan sweep — it is a safety net for a rare crash window, not a
// per-tick concern, so it runs far less often than promote/reclaim.
const orphanSweepEveryTicks = 30

// heartbeatPruneEveryTicks similarly throttles the worker-heartbeat
// sweep.
const heartbeatPruneEveryTicks = 60

type Scheduler struct {
	store   *storage.Store
	coord   *queue.Coordinator
	leader  *LeaderElector
	queues  []string
	tick    time.Duration
	logger  *zap.Logger
	metrics *metrics.Registry
	tickSeq int64
}

func New(store *storage.Store, coord *queue.Coordinator, leader *LeaderElector, queues []string, tick time.Duration, logger *zap.Logger, m *metrics.Registry) *Scheduler {
	return &Scheduler{
		store:   store,
		coord:   coord,
		leader:  leader,
		queues:  queues,
		tick:    tick,
		logger:  logger,
		metrics: m,
	}
}

// Run blocks, ticking every s.tick until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	defer s.leader.Release(context.Background())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	if !s.leader.Held() {
		acquired, err := s.leader.TryAcquire(ctx)
		if err != nil {
			s.logger.Warn("leader election attempt failed", zap.Error(err))
			return
		}
		if !acquired {
			return
		}
		s.logger.Info("acquired scheduler leadership")
	}

	s.tickSeq++
	now := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, q := range s.queues {
		q := q
		g.Go(func() error {
			s.promoteDue(gctx, q, now)
			s.reclaimExpired(gctx, q, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("scheduler tick failed", zap.Error(err))
	}

	if s.tickSeq%orphanSweepEveryTicks == 0 {
		for _, q := range s.queues {
			s.sweepOrphans(ctx, q)
		}
	}
	if s.tickSeq%heartbeatPruneEveryTicks == 0 {
		if n, err := s.store.PruneStaleHeartbeats(ctx, 3*s.tick+30*time.Second); err != nil {
			s.logger.Warn("prune heartbeats failed", zap.Error(err))
		} else if n > 0 {
			s.logger.Info("pruned stale heartbeats", zap.Int64("count", n))
		}
	}

	if s.metrics != nil {
		for _, q := range s.queues {
			depths, err := s.coord.QueueDepths(ctx, q)
			if err != nil {
				continue
			}
			s.metrics.QueueDepth.WithLabelValues(q, "waiting").Set(float64(depths.Waiting))
			s.metrics.QueueDepth.WithLabelValues(q, "processing").Set(float64(depths.Processing))
			s.metrics.QueueDepth.WithLabelValues(q, "delayed").Set(float64(depths.Delayed))
			s.metrics.QueueDepth.WithLabelValues(q, "dlq").Set(float64(depths.DLQ))
		}
	}
}

// promoteDue pops ids from delayed(Q), re-derives status/priority from
// the durable store, and re-enqueues anything still eligible. A job
// whose row has moved to a terminal state (e.g. cancelled during the
// delay) is silently dropped.
func (s *Scheduler) promoteDue(ctx context.Context, queueName string, now time.Time) {
	ids, err := s.coord.PromoteDue(ctx, queueName, now)
	if err != nil {
		s.logger.Error("promote due: pop failed", zap.String("queue", queueName), zap.Error(err))
		return
	}
	for _, id := range ids {
		job, err := s.store.Get(ctx, id)
		if err != nil {
			s.logger.Warn("promote due: row missing, dropping", zap.String("job_id", id), zap.Error(err))
			continue
		}

		switch job.Status {
		case domain.StatusPending, domain.StatusScheduled, domain.StatusFailed:
			if job.Status == domain.StatusScheduled {
				if err := s.store.PromoteScheduled(ctx, id); err != nil {
					s.logger.Error("promote due: status flip failed", zap.String("job_id", id), zap.Error(err))
					continue
				}
			}
			if err := s.coord.Enqueue(ctx, queueName, id, job.Priority); err != nil {
				s.logger.Error("promote due: enqueue failed", zap.String("job_id", id), zap.Error(err))
				continue
			}
			if s.metrics != nil {
				s.metrics.JobsEnqueued.WithLabelValues(queueName, string(job.Priority)).Inc()
			}
		default:
			// Terminal (COMPLETED/CANCELLED/DEAD) — dropped silently.
		}
	}
}

// reclaimExpired finds jobs whose processing lease has expired and
// returns them to waiting(Q). The durable-store write is a
// compare-and-swap on the observed lockedAt, so a concurrent finalize by
// the original worker wins the race instead of being clobbered.
func (s *Scheduler) reclaimExpired(ctx context.Context, queueName string, now time.Time) {
	ids, err := s.coord.ProcessingMembers(ctx, queueName)
	if err != nil {
		s.logger.Error("reclaim: list processing failed", zap.String("queue", queueName), zap.Error(err))
		return
	}
	for _, id := range ids {
		job, err := s.store.Get(ctx, id)
		if err != nil {
			s.logger.Warn("reclaim: row missing, acking stale processing entry", zap.String("job_id", id), zap.Error(err))
			_ = s.coord.Ack(ctx, queueName, id)
			continue
		}
		if job.Status != domain.StatusProcessing || job.LockedAt == nil {
			// Already finalized; the coordination-store entry is stale.
			_ = s.coord.Ack(ctx, queueName, id)
			continue
		}
		if now.Sub(*job.LockedAt) <= job.VisibilityTimeout {
			continue
		}

		reclaimed, err := s.store.ReclaimExpired(ctx, id, *job.LockedAt)
		if err != nil {
			s.logger.Error("reclaim: cas update failed", zap.String("job_id", id), zap.Error(err))
			continue
		}
		if !reclaimed {
			// Lost the race to a concurrent finalize; leave the
			// coordination-store entry for that finalize's own Ack.
			continue
		}

		if err := s.coord.Ack(ctx, queueName, id); err != nil {
			s.logger.Error("reclaim: ack failed", zap.String("job_id", id), zap.Error(err))
		}
		if err := s.coord.Enqueue(ctx, queueName, id, job.Priority); err != nil {
			s.logger.Error("reclaim: re-enqueue failed", zap.String("job_id", id), zap.Error(err))
			continue
		}
		if err := s.store.AppendHistory(ctx, id, domain.StatusPending, "reclaimed after visibility timeout", ""); err != nil {
			s.logger.Error("reclaim: append history failed", zap.String("job_id", id), zap.Error(err))
		}
		s.logger.Info("reclaimed timed-out job", zap.String("job_id", id), zap.String("queue", queueName))
	}
}

// sweepOrphans guards against a PENDING row that is absent from
// waiting(Q) — because a crash landed between the delayed-pop and the
// waiting-add — which would otherwise be invisible to every worker
// forever. This periodically re-enqueues up to 1000 of the queue's
// oldest PENDING rows. Re-enqueuing an id already present in waiting(Q)
// does not duplicate it but resets its score to the current instant, so
// the job moves behind same-priority jobs enqueued before the sweep.
func (s *Scheduler) sweepOrphans(ctx context.Context, queueName string) {
	pending, err := s.store.ListByStatus(ctx, queueName, domain.StatusPending, 1000)
	if err != nil {
		s.logger.Error("orphan sweep: list pending failed", zap.String("queue", queueName), zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	for _, job := range pending {
		if err := s.coord.Enqueue(ctx, queueName, job.ID, job.Priority); err != nil {
			s.logger.Error("orphan sweep: enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}
