// Command worker runs the dequeue/execute/finalize loop against the
// queues configured for this process, plus a heartbeat loop and a
// private /metrics server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/enqio/enq/internal/config"
	"github.com/enqio/enq/internal/logging"
	"github.com/enqio/enq/internal/metrics"
	"github.com/enqio/enq/internal/queue"
	"github.com/enqio/enq/internal/storage"
	"github.com/enqio/enq/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect to durable store", zap.Error(err))
	}
	defer db.Close()

	rdb := queue.NewRing(cfg.RedisAddrList(), cfg.RedisPassword)
	defer rdb.Close()

	store := storage.New(db)
	coord := queue.New(rdb)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	registry := worker.NewRegistry()
	registerBuiltinHandlers(registry)

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = randomWorkerID()
	}
	hostname, _ := os.Hostname()

	w := worker.New(worker.Options{
		WorkerID:        workerID,
		Hostname:        hostname,
		Queues:          cfg.Queues(),
		Concurrency:     cfg.WorkerConcurrency,
		PollInterval:    time.Duration(cfg.WorkerPollMS) * time.Millisecond,
		RetryBaseDelay:  time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
		PoisonWindow:    time.Duration(cfg.PoisonWindowMS) * time.Millisecond,
		PoisonThreshold: int64(cfg.PoisonThreshold),
		HeartbeatEvery:  10 * time.Second,
	}, store, coord, registry, logger, m)

	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		logger.Info("worker metrics listening", zap.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("worker starting", zap.String("worker_id", workerID), zap.Strings("queues", cfg.Queues()))
	if err := w.Run(ctx); err != nil {
		logger.Error("worker exited with error", zap.Error(err))
	}
}

func randomWorkerID() string {
	host, _ := os.Hostname()
	return host + "-" + time.Now().Format("150405.000")
}
