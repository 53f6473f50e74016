package enrollment

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Result summarises a dropout run.
type Result struct {
	Cutoff  time.Time
	Pages   int
	Checked int
	Dropped int
	Elapsed time.Duration
}

// Excluded is the number of checked enrollments that were kept.
func (r Result) Excluded() int {
	return r.Checked - r.Dropped
}

// PageResult describes one processed page.
type PageResult struct {
	Number  int
	Checked int
	Dropped []Ref
	At      time.Time
}

// PageFunc observes each page after its mutations were applied.
type PageFunc func(PageResult)

// Service marks stale enrollments as dropped out.
type Service struct {
	resolve  DeadlineResolver
	pageSize int
	clock    func() time.Time
	logger   zerolog.Logger
}

// NewService creates a service. A nil resolver falls back to
// LatestEnrollmentDeadline.
func NewService(resolve DeadlineResolver, pageSize int, logger zerolog.Logger) *Service {
	if resolve == nil {
		resolve = LatestEnrollmentDeadline
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		resolve:  resolve,
		pageSize: pageSize,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "dropout").Logger(),
	}
}

// WithClock overrides the clock used to stamp mutations.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Run resolves the cutoff and processes every candidate page against st.
// It never commits or rolls back; the caller owns the transaction behind st.
func (s *Service) Run(ctx context.Context, st Store, onPage PageFunc) (Result, error) {
	started := time.Now()
	var res Result

	cutoff, err := s.resolve(ctx, st)
	if err != nil {
		res.Elapsed = time.Since(started)
		return res, err
	}
	res.Cutoff = cutoff
	s.logger.Info().Time("cutoff", cutoff).Int("page_size", s.pageSize).Msg("scanning enrollments")

	scanner := NewScanner(st, cutoff, s.pageSize)
	for {
		page, err := scanner.Next(ctx)
		if err != nil {
			res.Elapsed = time.Since(started)
			return res, err
		}
		if len(page) == 0 {
			break
		}
		res.Pages++

		plan, at, err := s.processPage(ctx, st, page)
		if err != nil {
			res.Elapsed = time.Since(started)
			return res, err
		}
		res.Checked += len(page)
		res.Dropped += len(plan.Drop)

		s.logger.Debug().
			Int("page", res.Pages).
			Int64("cursor", scanner.Cursor()).
			Int("checked", len(page)).
			Int("dropped", len(plan.Drop)).
			Int("excluded", plan.Excluded).
			Msg("page processed")

		if onPage != nil {
			onPage(PageResult{Number: res.Pages, Checked: len(page), Dropped: plan.Drop, At: at})
		}
	}

	res.Elapsed = time.Since(started)
	return res, nil
}

func (s *Service) processPage(ctx context.Context, st Store, page []Ref) (Plan, time.Time, error) {
	courseIDs, studentIDs := distinctIDs(page)

	examKeys, err := st.InProgressExamKeys(ctx, courseIDs, studentIDs)
	if err != nil {
		return Plan{}, time.Time{}, storageErr("load in-progress exams", err)
	}
	submissionKeys, err := st.WaitingReviewSubmissionKeys(ctx, courseIDs, studentIDs)
	if err != nil {
		return Plan{}, time.Time{}, storageErr("load submissions waiting review", err)
	}

	at := s.clock()
	plan := Evaluate(page, at, NewKeySet(examKeys), NewKeySet(submissionKeys))
	if len(plan.Drop) == 0 {
		return plan, at, nil
	}

	if _, err := st.MarkDropout(ctx, plan.IDs(), at); err != nil {
		return Plan{}, time.Time{}, storageErr("mark enrollments dropped", err)
	}
	if _, err := st.InsertActivityLogs(ctx, plan.Logs); err != nil {
		return Plan{}, time.Time{}, storageErr("insert activity logs", err)
	}
	return plan, at, nil
}
