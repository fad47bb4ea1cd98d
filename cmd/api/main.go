// Command api runs the HTTP intake surface: job creation, lookup, retry,
// cancel, completion hand-off, health, and metrics.
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
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/enqio/enq/internal/config"
	"github.com/enqio/enq/internal/intake"
	"github.com/enqio/enq/internal/logging"
	"github.com/enqio/enq/internal/metrics"
	"github.com/enqio/enq/internal/queue"
	"github.com/enqio/enq/internal/storage"
	"github.com/enqio/enq/internal/transport"
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
	m := metrics.New(prometheus.DefaultRegisterer)

	in := intake.New(store, coord,
		cfg.DefaultMaxRetries,
		time.Duration(cfg.DefaultVisibilityTimeoutMS)*time.Millisecond,
		m,
	)

	health := transport.NewHealthChecker(store, coord)
	handlers := transport.NewHandlers(in, coord, health, logger)
	router := transport.NewRouter(handlers, cfg.AdminTokenHash)

	srv := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: router,
	}

	go func() {
		logger.Info("api listening", zap.String("addr", cfg.APIAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("api shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, srv.Shutdown(shutdownCtx))
	errs = multierr.Append(errs, rdb.Close())
	if errs != nil {
		logger.Error("shutdown errors", zap.Error(errs))
		os.Exit(1)
	}
}
