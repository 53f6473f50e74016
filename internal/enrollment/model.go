package enrollment

import "time"

// Status represents the lifecycle state of an enrollment.
type Status string

// Enrollment statuses touched by the dropout job.
const (
	StatusActive  Status = "ACTIVE"
	StatusDropout Status = "DROPOUT"
)

// Statuses of related records that block a dropout.
const (
	ExamStatusInProgress          = "IN_PROGRESS"
	SubmissionStatusWaitingReview = "WAITING_REVIEW"
)

// DropoutDescription tags activity log entries written for a dropout.
const DropoutDescription = "COURSE_DROPOUT"

// Ref is the projection of an enrollment the mutation path needs.
type Ref struct {
	ID        int64
	CourseID  int64
	StudentID int64
}

// Key returns the student-in-course key of the enrollment.
func (r Ref) Key() Key {
	return Key{CourseID: r.CourseID, StudentID: r.StudentID}
}

// Key identifies a student within a course.
type Key struct {
	CourseID  int64
	StudentID int64
}

// ActivityLogEntry is an append-only audit record.
type ActivityLogEntry struct {
	ResourceID  int64
	UserID      int64
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
