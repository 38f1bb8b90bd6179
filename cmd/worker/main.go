package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/gobooks/internal/app"
	"github.com/iho/gobooks/internal/infrastructure/config"
	"github.com/iho/gobooks/internal/infrastructure/jobs"
	"github.com/iho/gobooks/internal/infrastructure/logger"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
	"github.com/iho/gobooks/internal/infrastructure/postgres"
	"github.com/iho/gobooks/internal/infrastructure/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "gobooks-worker"})

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker failed")
	}
	log.Info().Msg("worker stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	queueOpt, err := redis.QueueConnOpt(cfg.RedisURL)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store := app.NewStore(pool)
	services := app.NewServices(store, nil, cfg, log, m)

	cron, err := cronEntries(cfg)
	if err != nil {
		return err
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   queueOpt,
		Concurrency: cfg.WorkerConcurrency,
		Logger:      log,
		Handlers:    taskHandlers(log, services.Reconciliation, store.Directory, m),
		Cron:        cron,
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func taskHandlers(log zerolog.Logger, reconciler jobs.Reconciler, orgs jobs.OrganizationLister, m jobs.TaskMetrics) []jobs.TaskHandler {
	events := &jobs.EventHandler{Notifier: jobs.NewLogNotifier(log), Logger: log, Metrics: m}
	reconcile := &jobs.ReconcileHandler{Reconciler: reconciler, Organizations: orgs, Logger: log, Metrics: m}

	return []jobs.TaskHandler{
		{Type: jobs.TypeEventNotify, Handler: events.Handle},
		{Type: jobs.TypeReconcile, Handler: reconcile.Handle},
	}
}

// cronEntries schedules the nightly all-organization reconciliation. An
// empty spec disables it.
func cronEntries(cfg *config.Config) ([]jobs.CronRegistration, error) {
	if cfg.ReconcileCron == "" {
		return nil, nil
	}
	task, err := jobs.NewReconcileTask("")
	if err != nil {
		return nil, err
	}
	return []jobs.CronRegistration{{
		Spec:    cfg.ReconcileCron,
		Task:    task,
		Options: []asynq.Option{asynq.Unique(time.Hour)},
	}}, nil
}
