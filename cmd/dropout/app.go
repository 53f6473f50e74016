package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"dropout/internal/config"
	"dropout/internal/enrollment"
	"dropout/internal/job"
	"dropout/internal/logging"
	"dropout/internal/metrics"
	"dropout/internal/queue"
	"dropout/internal/store"
)

// app holds the wired dependencies shared by both commands.
type app struct {
	cfg     config.App
	logger  zerolog.Logger
	db      *store.DB
	redis   *store.Redis
	metrics *metrics.Metrics
	runner  *job.Runner
}

func newApp(ctx context.Context, cfg config.App) (*app, error) {
	logger := logging.New(cfg.Env, cfg.LogLevel, os.Stderr)

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db, metrics: metrics.New()}

	var locker job.Locker
	if cfg.RedisAddr != "" {
		a.redis = store.NewRedis(cfg.RedisAddr)
		locker = a.redis
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, overlapping runs are not prevented")
	}

	resolver := enrollment.LatestEnrollmentDeadline
	if !cfg.Cutoff.IsZero() {
		resolver = enrollment.FixedDeadline(cfg.Cutoff)
	}
	svc := enrollment.NewService(resolver, cfg.PageSize, logger)

	a.runner = job.NewRunner(svc, job.PostgresUnit{DB: db}, locker, a.newQueue(ctx), a.metrics, job.Config{
		DryRun:  cfg.DryRun,
		LockTTL: cfg.LockTTL,
	}, logger)
	return a, nil
}

func (a *app) newQueue(ctx context.Context) queue.Queue {
	switch a.cfg.QueueBackend {
	case "redis":
		if a.redis == nil {
			a.logger.Warn().Msg("QUEUE_BACKEND=redis needs REDIS_ADDR, dropout notifications disabled")
			return nil
		}
		return queue.NewRedisQueue(a.redis.Client, queue.DefaultKey)
	case "memory":
		// Best effort: a one-shot run may exit before the drain logs everything.
		q := queue.NewInMemory(1024)
		go drainDropouts(ctx, q, logging.Component(a.logger, "notifications"))
		return q
	case "none", "":
		return nil
	default:
		a.logger.Warn().Str("backend", a.cfg.QueueBackend).Msg("unknown queue backend, dropout notifications disabled")
		return nil
	}
}

// drainDropouts logs notifications from the in-memory queue so dev runs
// never block on a full buffer.
func drainDropouts(ctx context.Context, q queue.Queue, logger zerolog.Logger) {
	msgs, err := q.Consume(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("queue consume init failed")
		return
	}
	for msg := range msgs {
		d, err := queue.DecodeDropout(msg)
		if err != nil {
			logger.Warn().Err(err).Msg("skipping malformed notification")
			continue
		}
		logger.Info().
			Str("run_id", d.RunID).
			Int64("enrollment_id", d.EnrollmentID).
			Int64("student_id", d.StudentID).
			Msg("enrollment dropped out")
	}
}

func (a *app) close() {
	if err := a.redis.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close redis")
	}
	a.db.Close()
}

func runOnce(ctx context.Context, cfg config.App, out io.Writer) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		printFailure(out, err)
		return err
	}
	defer a.close()

	printStart(out, cfg.DryRun)
	report, err := a.runner.RunOnce(ctx)
	if cfg.PushgatewayURL != "" {
		if perr := a.metrics.Push(context.WithoutCancel(ctx), cfg.PushgatewayURL, report.RunID); perr != nil {
			a.logger.Warn().Err(perr).Msg("push metrics failed")
		}
	}
	if err != nil {
		printFailure(out, err)
		return err
	}
	printSummary(out, report)
	return nil
}
