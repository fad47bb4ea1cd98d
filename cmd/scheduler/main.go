// Command scheduler runs the periodic promotion/reclaim loop: one
// leader-elected instance per fleet that moves due-delayed jobs back
// into waiting(Q) and reclaims jobs whose processing lease expired.
package main

import (
	"context"
	"net/http"
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
	"github.com/enqio/enq/internal/scheduler"
	"github.com/enqio/enq/internal/storage"
)

const leaderLockID int64 = 42

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

	leader := scheduler.NewLeaderElector(db, leaderLockID)
	sched := scheduler.New(store, coord, leader, cfg.Queues(), time.Duration(cfg.SchedulerTickMS)*time.Millisecond, logger, m)

	metricsSrv := &http.Server{Addr: cfg.SchedulerMetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		logger.Info("scheduler metrics listening", zap.String("addr", cfg.SchedulerMetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("scheduler metrics server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("scheduler starting", zap.Strings("queues", cfg.Queues()))
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler exited with error", zap.Error(err))
	}
}
