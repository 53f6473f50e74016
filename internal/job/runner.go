package job

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"dropout/internal/enrollment"
	"dropout/internal/metrics"
	"dropout/internal/queue"
	"dropout/internal/store"
)

// LockKey guards against overlapping dropout runs.
const LockKey = "enrollments:dropout:lock"

// ErrRunInProgress is returned when another run holds the lock.
var ErrRunInProgress = errors.New("dropout run already in progress")

// UnitOfWork runs fn against a store bound to one transaction, committing
// when commit is true and fn succeeds, rolling back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, commit bool, fn func(enrollment.Store) error) error
}

// Locker takes a named lock for ttl.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// PostgresUnit is the UnitOfWork backed by a pgx transaction.
type PostgresUnit struct {
	DB *store.DB
}

// Do implements UnitOfWork.
func (u PostgresUnit) Do(ctx context.Context, commit bool, fn func(enrollment.Store) error) error {
	return u.DB.InTx(ctx, commit, func(tx pgx.Tx) error {
		return fn(enrollment.NewRepository(tx))
	})
}

// Config tunes a Runner.
type Config struct {
	DryRun  bool
	LockTTL time.Duration
}

// Report is the outcome of one run.
type Report struct {
	enrollment.Result
	RunID     string
	DryRun    bool
	Committed bool
	Published int
}

// Runner executes the dropout job end to end.
type Runner struct {
	service *enrollment.Service
	uow     UnitOfWork
	locker  Locker
	queue   queue.Queue
	metrics *metrics.Metrics
	cfg     Config
	logger  zerolog.Logger
}

// NewRunner wires a runner. locker, q and m are optional.
func NewRunner(service *enrollment.Service, uow UnitOfWork, locker Locker, q queue.Queue, m *metrics.Metrics, cfg Config, logger zerolog.Logger) *Runner {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	return &Runner{
		service: service,
		uow:     uow,
		locker:  locker,
		queue:   q,
		metrics: m,
		cfg:     cfg,
		logger:  logger.With().Str("component", "runner").Logger(),
	}
}

// RunOnce performs a single dropout run inside one transaction.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString(), DryRun: r.cfg.DryRun}
	logger := r.logger.With().Str("run_id", report.RunID).Logger()

	if r.locker != nil {
		release, err := r.locker.TryLock(ctx, LockKey, r.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, store.ErrLockHeld) {
				r.metrics.Observe(enrollment.Result{}, metrics.ResultSkipped)
				return report, ErrRunInProgress
			}
			return report, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn().Err(err).Msg("release run lock failed")
			}
		}()
	}

	logger.Info().Bool("dry_run", r.cfg.DryRun).Msg("dropout run started")

	var dropped []queue.Dropout
	onPage := func(p enrollment.PageResult) {
		for _, ref := range p.Dropped {
			dropped = append(dropped, queue.Dropout{
				RunID:        report.RunID,
				EnrollmentID: ref.ID,
				CourseID:     ref.CourseID,
				StudentID:    ref.StudentID,
				DroppedAt:    p.At,
			})
		}
	}

	err := r.uow.Do(ctx, !r.cfg.DryRun, func(st enrollment.Store) error {
		res, err := r.service.Run(ctx, st, onPage)
		report.Result = res
		return err
	})
	if err != nil {
		r.metrics.Observe(report.Result, outcomeOf(err))
		logger.Error().Err(err).Msg("dropout run failed, rolled back")
		return report, err
	}

	if r.cfg.DryRun {
		r.metrics.Observe(report.Result, metrics.ResultDryRun)
		logger.Info().Int("checked", report.Checked).Int("dropped", report.Dropped).Msg("dry run rolled back")
		return report, nil
	}

	report.Committed = true
	r.metrics.Observe(report.Result, metrics.ResultSuccess)
	report.Published = r.publish(ctx, logger, dropped)

	logger.Info().
		Time("cutoff", report.Cutoff).
		Int("checked", report.Checked).
		Int("dropped", report.Dropped).
		Int("excluded", report.Excluded()).
		Dur("elapsed", report.Elapsed).
		Msg("dropout run committed")
	return report, nil
}

// publish announces committed dropouts; failures are logged and never undo
// the run.
func (r *Runner) publish(ctx context.Context, logger zerolog.Logger, dropped []queue.Dropout) int {
	if r.queue == nil {
		return 0
	}
	published := 0
	for _, d := range dropped {
		msg, err := queue.NewDropoutMessage(d)
		if err == nil {
			err = r.queue.Publish(ctx, msg)
		}
		if err != nil {
			logger.Warn().Err(err).Int64("enrollment_id", d.EnrollmentID).Msg("queue publish failed")
			continue
		}
		published++
	}
	return published
}

func outcomeOf(err error) string {
	if enrollment.IsNoData(err) {
		return metrics.ResultNoData
	}
	return metrics.ResultError
}
