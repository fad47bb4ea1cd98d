package worker

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/enqio/enq/internal/domain"
	"github.com/enqio/enq/internal/metrics"
	"github.com/enqio/enq/internal/queue"
	"github.com/enqio/enq/internal/storage"
)

// Options configures a Worker.
type Options struct {
	WorkerID        string
	Hostname        string
	Queues          []string
	Concurrency     int
	PollInterval    time.Duration
	RetryBaseDelay  time.Duration
	PoisonWindow    time.Duration
	PoisonThreshold int64
	HeartbeatEvery  time.Duration
}

// Worker is the concurrency-bounded dequeue/execute/finalize loop. N
// independent polling lanes run concurrently; each owns one job at a
// time end to end and never interleaves two jobs.
type Worker struct {
	opts     Options
	store    *storage.Store
	coord    *queue.Coordinator
	registry *Registry
	logger   *zap.Logger
	metrics  *metrics.Registry

	draining  atomic.Bool
	inFlight  atomic.Int32
	startedAt time.Time
}

func New(opts Options, store *storage.Store, coord *queue.Coordinator, registry *Registry, logger *zap.Logger, m *metrics.Registry) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.HeartbeatEvery <= 0 {
		opts.HeartbeatEvery = 10 * time.Second
	}
	return &Worker{
		opts:     opts,
		store:    store,
		coord:    coord,
		registry: registry,
		logger:   logger,
		metrics:  m,
	}
}

// Run starts the worker's lanes and heartbeat loop, blocking until ctx is
// canceled. On cancellation it flips the draining flag, lets in-flight
// lanes finish their current job, and waits up to 30s before returning
// regardless of outstanding work — any job still being held past that
// point is reclaimed later by the scheduler's visibility-timeout sweep.
func (w *Worker) Run(ctx context.Context) error {
	w.startedAt = time.Now()
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < w.opts.Concurrency; i++ {
		g.Go(func() error {
			w.lane(gctx)
			return nil
		})
	}

	g.Go(func() error {
		w.heartbeatLoop(gctx)
		return nil
	})

	<-ctx.Done()
	w.draining.Store(true)
	w.logger.Info("worker draining", zap.String("worker_id", w.opts.WorkerID))

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		w.logger.Warn("worker drain timed out, exiting with jobs in flight",
			zap.String("worker_id", w.opts.WorkerID), zap.Int32("in_flight", w.inFlight.Load()))
	}
	return nil
}

// lane is one polling lane: round-robins the configured queues, pops a
// job when one is available, otherwise sleeps PollInterval. It exits
// once draining is set and no job is in progress.
func (w *Worker) lane(ctx context.Context) {
	for {
		if w.draining.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		gotOne := false
		for _, q := range w.opts.Queues {
			id, err := w.coord.Dequeue(ctx, q)
			if err != nil {
				w.logger.Error("dequeue failed", zap.String("queue", q), zap.Error(err))
				continue
			}
			if id == "" {
				continue
			}
			gotOne = true
			w.inFlight.Add(1)
			w.processJob(ctx, q, id)
			w.inFlight.Add(-1)
		}

		if !gotOne {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.opts.PollInterval):
			}
		}
	}
}

// heartbeatLoop periodically upserts this worker's WorkerHeartbeat row.
func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(w.opts.HeartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb := domain.WorkerHeartbeat{
				WorkerID:    w.opts.WorkerID,
				Hostname:    w.opts.Hostname,
				Queues:      w.opts.Queues,
				Concurrency: w.opts.Concurrency,
				ActiveJobs:  int(w.inFlight.Load()),
				StartedAt:   w.startedAt,
			}
			if err := w.store.UpsertHeartbeat(ctx, hb); err != nil {
				w.logger.Warn("heartbeat upsert failed", zap.Error(err))
			}
		}
	}
}
