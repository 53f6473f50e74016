package enrollment

import (
	"context"
	"sort"
	"time"
)

type memEnrollment struct {
	Ref
	DeadlineAt *time.Time
	Status     Status
	UpdatedAt  time.Time
}

type memRelated struct {
	Key
	Status string
}

// memStore is an in-memory Store used by the unit tests.
type memStore struct {
	enrollments map[int64]*memEnrollment
	exams       []memRelated
	submissions []memRelated
	logs        []ActivityLogEntry

	failOp string
	err    error
	calls  map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		enrollments: make(map[int64]*memEnrollment),
		calls:       make(map[string]int),
	}
}

func (m *memStore) addEnrollment(id, courseID, studentID int64, deadline time.Time) *memEnrollment {
	e := &memEnrollment{
		Ref:        Ref{ID: id, CourseID: courseID, StudentID: studentID},
		DeadlineAt: &deadline,
		Status:     StatusActive,
	}
	m.enrollments[id] = e
	return e
}

func (m *memStore) addExam(courseID, studentID int64, status string) {
	m.exams = append(m.exams, memRelated{Key: Key{courseID, studentID}, Status: status})
}

func (m *memStore) addSubmission(courseID, studentID int64, status string) {
	m.submissions = append(m.submissions, memRelated{Key: Key{courseID, studentID}, Status: status})
}

func (m *memStore) failWith(op string, err error) {
	m.failOp = op
	m.err = err
}

func (m *memStore) hit(op string) error {
	m.calls[op]++
	if m.failOp == op {
		return m.err
	}
	return nil
}

func (m *memStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(m.enrollments))
	for id := range m.enrollments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *memStore) LatestDeadline(context.Context) (time.Time, bool, error) {
	if err := m.hit("latest"); err != nil {
		return time.Time{}, false, err
	}
	ids := m.sortedIDs()
	if len(ids) == 0 {
		return time.Time{}, false, nil
	}
	last := m.enrollments[ids[len(ids)-1]]
	if last.DeadlineAt == nil {
		return time.Time{}, false, nil
	}
	return *last.DeadlineAt, true, nil
}

func (m *memStore) ScanCandidates(_ context.Context, cutoff time.Time, afterID int64, limit int) ([]Ref, error) {
	if err := m.hit("scan"); err != nil {
		return nil, err
	}
	var page []Ref
	for _, id := range m.sortedIDs() {
		e := m.enrollments[id]
		if id <= afterID || e.Status != StatusActive || e.DeadlineAt == nil || e.DeadlineAt.After(cutoff) {
			continue
		}
		page = append(page, e.Ref)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (m *memStore) InProgressExamKeys(_ context.Context, courseIDs, studentIDs []int64) ([]Key, error) {
	if err := m.hit("exams"); err != nil {
		return nil, err
	}
	return filterKeys(m.exams, ExamStatusInProgress, courseIDs, studentIDs), nil
}

func (m *memStore) WaitingReviewSubmissionKeys(_ context.Context, courseIDs, studentIDs []int64) ([]Key, error) {
	if err := m.hit("submissions"); err != nil {
		return nil, err
	}
	return filterKeys(m.submissions, SubmissionStatusWaitingReview, courseIDs, studentIDs), nil
}

func filterKeys(rows []memRelated, status string, courseIDs, studentIDs []int64) []Key {
	courses := make(map[int64]bool, len(courseIDs))
	for _, id := range courseIDs {
		courses[id] = true
	}
	students := make(map[int64]bool, len(studentIDs))
	for _, id := range studentIDs {
		students[id] = true
	}
	seen := make(map[Key]bool)
	var keys []Key
	for _, r := range rows {
		if r.Status != status || !courses[r.CourseID] || !students[r.StudentID] || seen[r.Key] {
			continue
		}
		seen[r.Key] = true
		keys = append(keys, r.Key)
	}
	return keys
}

func (m *memStore) MarkDropout(_ context.Context, ids []int64, at time.Time) (int64, error) {
	if err := m.hit("mark"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if e, ok := m.enrollments[id]; ok {
			e.Status = StatusDropout
			e.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertActivityLogs(_ context.Context, entries []ActivityLogEntry) (int64, error) {
	if err := m.hit("logs"); err != nil {
		return 0, err
	}
	m.logs = append(m.logs, entries...)
	return int64(len(entries)), nil
}

func (m *memStore) logsFor(id int64) []ActivityLogEntry {
	var out []ActivityLogEntry
	for _, l := range m.logs {
		if l.ResourceID == id {
			out = append(out, l)
		}
	}
	return out
}
