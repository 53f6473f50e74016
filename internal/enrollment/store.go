package enrollment

import (
	"context"
	"time"
)

// Store is the read/write surface the dropout run needs. Implementations are
// expected to be bound to a single transaction for the duration of a run.
type Store interface {
	// LatestDeadline returns the deadline of the enrollment with the highest
	// id. ok is false when there are no enrollments or that deadline is unset.
	LatestDeadline(ctx context.Context) (deadline time.Time, ok bool, err error)
	// ScanCandidates returns up to limit active enrollments with id > afterID
	// and deadline <= cutoff, ordered by id.
	ScanCandidates(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]Ref, error)
	// InProgressExamKeys returns the distinct keys with an in-progress exam.
	InProgressExamKeys(ctx context.Context, courseIDs, studentIDs []int64) ([]Key, error)
	// WaitingReviewSubmissionKeys returns the distinct keys with a submission
	// waiting for review.
	WaitingReviewSubmissionKeys(ctx context.Context, courseIDs, studentIDs []int64) ([]Key, error)
	// MarkDropout sets status DROPOUT and updated_at on every id.
	MarkDropout(ctx context.Context, ids []int64, at time.Time) (int64, error)
	// InsertActivityLogs appends entries in one call.
	InsertActivityLogs(ctx context.Context, entries []ActivityLogEntry) (int64, error)
}
