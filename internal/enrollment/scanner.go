package enrollment

import (
	"context"
	"time"
)

// DefaultPageSize bounds how many enrollments are held per page.
const DefaultPageSize = 1000

// Scanner walks candidate enrollments in id order using keyset pagination.
// Each call to Next resumes after the last id it returned, so a row is never
// returned twice even when earlier pages were mutated.
type Scanner struct {
	store  Store
	cutoff time.Time
	size   int
	cursor int64
	done   bool
}

// NewScanner creates a scanner over enrollments due at or before cutoff.
func NewScanner(s Store, cutoff time.Time, size int) *Scanner {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Scanner{store: s, cutoff: cutoff, size: size}
}

// StartAfter positions the scanner after id.
func (s *Scanner) StartAfter(id int64) *Scanner {
	s.cursor = id
	s.done = false
	return s
}

// Cursor returns the last id handed out.
func (s *Scanner) Cursor() int64 {
	return s.cursor
}

// Next returns the next page, or nil once the scan is exhausted.
func (s *Scanner) Next(ctx context.Context) ([]Ref, error) {
	if s.done {
		return nil, nil
	}
	page, err := s.store.ScanCandidates(ctx, s.cutoff, s.cursor, s.size)
	if err != nil {
		return nil, storageErr("scan enrollments", err)
	}
	if len(page) < s.size {
		s.done = true
	}
	if len(page) == 0 {
		return nil, nil
	}
	s.cursor = page[len(page)-1].ID
	return page, nil
}
