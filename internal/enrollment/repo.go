package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	enrollmentsTable  = "enrollments"
	examsTable        = "exams"
	submissionsTable  = "submissions"
	activityLogsTable = "activity_logs"
)

var activityLogColumns = []string{"resource_id", "user_id", "description", "created_at", "updated_at"}

// Querier is the subset of pgx shared by pgx.Tx, pgx.Conn and pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Repository implements Store on Postgres.
type Repository struct {
	q Querier
}

var _ Store = (*Repository)(nil)

// NewRepository creates a repo. Pass a pgx.Tx to scope every call to one
// transaction.
func NewRepository(q Querier) *Repository {
	return &Repository{q: q}
}

// LatestDeadline reads the deadline of the most recently inserted enrollment.
func (r *Repository) LatestDeadline(ctx context.Context) (time.Time, bool, error) {
	var deadline *time.Time
	err := r.q.QueryRow(ctx, `
		SELECT deadline_at
		FROM `+enrollmentsTable+`
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&deadline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if deadline == nil {
		return time.Time{}, false, nil
	}
	return *deadline, true, nil
}

// ScanCandidates returns one keyset page of enrollments due for evaluation.
func (r *Repository) ScanCandidates(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]Ref, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, course_id, student_id
		FROM `+enrollmentsTable+`
		WHERE id > $1 AND deadline_at <= $2 AND status = $3
		ORDER BY id
		LIMIT $4
	`, afterID, cutoff, string(StatusActive), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]Ref, 0, limit)
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.CourseID, &ref.StudentID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// InProgressExamKeys returns keys of exams still in progress.
func (r *Repository) InProgressExamKeys(ctx context.Context, courseIDs, studentIDs []int64) ([]Key, error) {
	return r.distinctKeys(ctx, examsTable, ExamStatusInProgress, courseIDs, studentIDs)
}

// WaitingReviewSubmissionKeys returns keys of submissions awaiting review.
func (r *Repository) WaitingReviewSubmissionKeys(ctx context.Context, courseIDs, studentIDs []int64) ([]Key, error) {
	return r.distinctKeys(ctx, submissionsTable, SubmissionStatusWaitingReview, courseIDs, studentIDs)
}

func (r *Repository) distinctKeys(ctx context.Context, table, status string, courseIDs, studentIDs []int64) ([]Key, error) {
	if len(courseIDs) == 0 || len(studentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT course_id, student_id
		FROM `+table+`
		WHERE status = $1 AND course_id = ANY($2) AND student_id = ANY($3)
	`, status, courseIDs, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.CourseID, &k.StudentID); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// MarkDropout flips the given enrollments to DROPOUT in one statement.
func (r *Repository) MarkDropout(ctx context.Context, ids []int64, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE `+enrollmentsTable+`
		SET status = $1, updated_at = $2
		WHERE id = ANY($3)
	`, string(StatusDropout), at, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertActivityLogs bulk-inserts entries using COPY.
func (r *Repository) InsertActivityLogs(ctx context.Context, entries []ActivityLogEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	return r.q.CopyFrom(ctx, pgx.Identifier{activityLogsTable}, activityLogColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{e.ResourceID, e.UserID, e.Description, e.CreatedAt, e.UpdatedAt}, nil
		}),
	)
}
