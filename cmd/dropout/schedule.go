package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dropout/internal/config"
	"dropout/internal/job"
	"dropout/internal/logging"
)

func newScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the dropout job on DROPOUT_SCHEDULE and serve /healthz and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchedule(cmd.Context(), config.Load())
		},
	}
}

func newCron(a *app) *cron.Cron {
	logger := logging.Component(a.logger, "cron")
	cronLogger := cron.PrintfLogger(&logger)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
}

func runSchedule(ctx context.Context, cfg config.App) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	logger := logging.Component(a.logger, "scheduler")

	c := newCron(a)
	if _, err := c.AddFunc(cfg.Schedule, func() {
		report, err := a.runner.RunOnce(ctx)
		switch {
		case errors.Is(err, job.ErrRunInProgress):
			logger.Info().Msg("previous run still holds the lock, skipping")
		case err != nil:
			logger.Error().Err(err).Str("run_id", report.RunID).Msg("scheduled run failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid DROPOUT_SCHEDULE %q: %w", cfg.Schedule, err)
	}

	srv := &http.Server{
		Addr: ":" + cfg.MetricsPort,
		Handler: newHealthRouter(map[string]func(context.Context) bool{
			"db":    a.db.Healthy,
			"redis": a.redisHealthy,
		}, a.metrics.Handler()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Start()
		logger.Info().Str("schedule", cfg.Schedule).Msg("scheduler started")
		<-gctx.Done()
		// wait for a run in flight to finish or roll back
		<-c.Stop().Done()
		logger.Info().Msg("scheduler stopped")
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("serving health and metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// redisHealthy treats an unconfigured redis as healthy.
func (a *app) redisHealthy(ctx context.Context) bool {
	if a.redis == nil {
		return true
	}
	return a.redis.Healthy(ctx)
}

func newHealthRouter(checks map[string]func(context.Context) bool, metricsHandler http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	r.GET("/metrics", gin.WrapH(metricsHandler))

	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		status := http.StatusOK
		for name, check := range checks {
			healthy := check(c.Request.Context())
			body[name] = healthy
			if !healthy {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	})
	return r
}
