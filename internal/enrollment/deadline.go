package enrollment

import (
	"context"
	"time"
)

// DeadlineResolver decides the cutoff: enrollments whose deadline is at or
// before it are evaluated for dropout.
type DeadlineResolver func(ctx context.Context, s Store) (time.Time, error)

// LatestEnrollmentDeadline uses the deadline of the most recently inserted
// enrollment as the cutoff.
//
// TODO: replace with the business cutoff rule once it is agreed; this only
// mirrors how the job was exercised so far.
func LatestEnrollmentDeadline(ctx context.Context, s Store) (time.Time, error) {
	deadline, ok, err := s.LatestDeadline(ctx)
	if err != nil {
		return time.Time{}, storageErr("resolve deadline", err)
	}
	if !ok {
		return time.Time{}, &NoDataError{Reason: "no enrollment with a deadline to derive the cutoff from"}
	}
	return deadline, nil
}

// FixedDeadline always resolves to at.
func FixedDeadline(at time.Time) DeadlineResolver {
	return func(context.Context, Store) (time.Time, error) {
		return at, nil
	}
}
