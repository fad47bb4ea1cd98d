package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/enqio/enq/internal/domain"
)

// handleFailure decides between a scheduled retry and dead-lettering,
// based on remaining attempts and poison-pill detection. It always ends
// with an Ack on the processing set, even if something inside this
// handler itself fails, so a broken failure path can never wedge the
// coordination store — the row may be left in PROCESSING, to be picked
// up later by the scheduler's visibility-timeout reclaim.
func (w *Worker) handleFailure(ctx context.Context, queueName string, claimed *domain.Job, cause error) {
	defer func() {
		if err := w.coord.Ack(ctx, queueName, claimed.ID); err != nil {
			w.logger.Error("ack after failure handling failed", zap.String("job_id", claimed.ID), zap.Error(err))
		}
	}()

	job, err := w.store.Get(ctx, claimed.ID)
	if err != nil {
		w.logger.Error("reload job after failure failed", zap.String("job_id", claimed.ID), zap.Error(err))
		return
	}

	poisonCount, err := w.coord.TrackFailure(ctx, job.ID, time.Now(), w.opts.PoisonWindow)
	if err != nil {
		w.logger.Error("track failure (poison-pill) failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	poison := poisonCount >= w.opts.PoisonThreshold

	if poison || job.Attempts >= job.MaxRetries+1 {
		reason := cause.Error()
		if poison {
			reason = "Poison pill detected"
		}
		if _, err := w.store.FailDead(ctx, job.ID, reason); err != nil {
			w.logger.Error("mark dead failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		if err := w.store.AppendHistory(ctx, job.ID, domain.StatusDead,
			fmt.Sprintf("attempt=%d: %s", job.Attempts, reason), w.opts.WorkerID); err != nil {
			w.logger.Error("append history failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		if err := w.coord.MoveToDLQ(ctx, queueName, job.ID); err != nil {
			w.logger.Error("move to dlq failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		if w.metrics != nil {
			dlqReason := "max_retries"
			if poison {
				dlqReason = "poison"
			}
			w.metrics.JobsDeadLettered.WithLabelValues(queueName, dlqReason).Inc()
		}
		return
	}

	delay, err := w.coord.ScheduleRetry(ctx, queueName, job.ID, job.Attempts, w.opts.RetryBaseDelay)
	if err != nil {
		w.logger.Error("schedule retry failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if _, err := w.store.FailRetryable(ctx, job.ID, cause.Error()); err != nil {
		w.logger.Error("mark failed (retryable) failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if err := w.store.AppendHistory(ctx, job.ID, domain.StatusFailed,
		fmt.Sprintf("attempt=%d: handler failed, retrying in %s: %s", job.Attempts, delay, cause.Error()),
		w.opts.WorkerID); err != nil {
		w.logger.Error("append history failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if w.metrics != nil {
		w.metrics.JobsFailed.WithLabelValues(queueName).Inc()
	}
}
