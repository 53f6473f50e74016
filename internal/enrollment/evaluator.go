package enrollment

import "time"

// KeySet is a membership set of student-in-course keys.
type KeySet map[Key]struct{}

// NewKeySet builds a set from keys.
func NewKeySet(keys []Key) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Has reports whether k is in the set.
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Plan is the set of mutations for one page.
type Plan struct {
	Drop     []Ref
	Logs     []ActivityLogEntry
	Excluded int
}

// IDs returns the ids to mark as dropped.
func (p Plan) IDs() []int64 {
	ids := make([]int64, len(p.Drop))
	for i, ref := range p.Drop {
		ids[i] = ref.ID
	}
	return ids
}

// Evaluate splits a page into enrollments to drop and enrollments excluded by
// any of the exclusion sets. Every log entry is stamped with at.
func Evaluate(page []Ref, at time.Time, exclusions ...KeySet) Plan {
	plan := Plan{
		Drop: make([]Ref, 0, len(page)),
		Logs: make([]ActivityLogEntry, 0, len(page)),
	}
	for _, ref := range page {
		if excluded(ref.Key(), exclusions) {
			plan.Excluded++
			continue
		}
		plan.Drop = append(plan.Drop, ref)
		plan.Logs = append(plan.Logs, ActivityLogEntry{
			ResourceID:  ref.ID,
			UserID:      ref.StudentID,
			Description: DropoutDescription,
			CreatedAt:   at,
			UpdatedAt:   at,
		})
	}
	return plan
}

func excluded(k Key, sets []KeySet) bool {
	for _, set := range sets {
		if set.Has(k) {
			return true
		}
	}
	return false
}

// distinctIDs returns the distinct course and student ids of a page in
// first-seen order.
func distinctIDs(page []Ref) (courseIDs, studentIDs []int64) {
	seenCourse := make(map[int64]struct{}, len(page))
	seenStudent := make(map[int64]struct{}, len(page))
	for _, ref := range page {
		if _, ok := seenCourse[ref.CourseID]; !ok {
			seenCourse[ref.CourseID] = struct{}{}
			courseIDs = append(courseIDs, ref.CourseID)
		}
		if _, ok := seenStudent[ref.StudentID]; !ok {
			seenStudent[ref.StudentID] = struct{}{}
			studentIDs = append(studentIDs, ref.StudentID)
		}
	}
	return courseIDs, studentIDs
}
