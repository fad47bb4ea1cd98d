package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/enqio/enq/internal/domain"
)

// processJob runs the per-job pipeline: conditional claim, history,
// handler invocation, and finalize. It never interleaves with another
// job on this lane.
func (w *Worker) processJob(ctx context.Context, queueName, id string) {
	start := time.Now()

	job, err := w.store.Claim(ctx, id, w.opts.WorkerID)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Non-eligibility reconciliation path: the coordination store
			// thought this job was claimable, but the durable row says
			// otherwise (already taken, cancelled, retried elsewhere).
			if ackErr := w.coord.Ack(ctx, queueName, id); ackErr != nil {
				w.logger.Error("ack on abandoned claim failed", zap.String("job_id", id), zap.Error(ackErr))
			}
			return
		}
		w.logger.Error("claim failed", zap.String("job_id", id), zap.Error(err))
		return
	}

	if w.metrics != nil {
		w.metrics.ClaimLatency.WithLabelValues(queueName).Observe(time.Since(start).Seconds())
		w.metrics.JobsDequeued.WithLabelValues(queueName).Inc()
		w.metrics.InFlight.Inc()
		defer w.metrics.InFlight.Dec()
	}

	if err := w.store.AppendHistory(ctx, id, domain.StatusProcessing, "claimed for processing", w.opts.WorkerID); err != nil {
		w.logger.Error("append history failed", zap.String("job_id", id), zap.Error(err))
	}

	handler, ok := w.registry.Resolve(job.Type)
	if !ok {
		w.handleFailure(ctx, queueName, job, errors.Errorf("no handler registered for type %q", job.Type))
		return
	}

	hctx, cancel := context.WithTimeout(ctx, job.VisibilityTimeout)
	handlerStart := time.Now()
	result, err := runHandler(hctx, handler, job.Payload)
	cancel()
	if w.metrics != nil {
		w.metrics.HandlerDuration.WithLabelValues(queueName, job.Type).Observe(time.Since(handlerStart).Seconds())
	}
	if err != nil {
		w.handleFailure(ctx, queueName, job, err)
		return
	}

	w.handleSuccess(ctx, queueName, job, result)
}

// runHandler invokes h and also converts a panic into an error, so a
// misbehaving handler enters the normal failure path instead of crashing
// the lane (and, by extension, every other job the worker is running).
func runHandler(ctx context.Context, h Handler, payload []byte) (result []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("handler panicked: %v", rec)
		}
	}()
	return h(ctx, payload)
}

func (w *Worker) handleSuccess(ctx context.Context, queueName string, job *domain.Job, result []byte) {
	if _, err := w.store.CompleteSuccess(ctx, job.ID, result); err != nil {
		w.logger.Error("complete success failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if err := w.store.AppendHistory(ctx, job.ID, domain.StatusCompleted, "handler succeeded", w.opts.WorkerID); err != nil {
		w.logger.Error("append history failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if err := w.coord.Ack(ctx, queueName, job.ID); err != nil {
		w.logger.Error("ack after success failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if w.metrics != nil {
		w.metrics.JobsCompleted.WithLabelValues(queueName).Inc()
	}
}
