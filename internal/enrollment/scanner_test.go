package enrollment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCutoff = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seedCandidates(m *memStore, n int) {
	for i := 1; i <= n; i++ {
		m.addEnrollment(int64(i), int64(i%7+1), int64(i), testCutoff)
	}
}

func drain(t *testing.T, s *Scanner) (pages [][]Ref) {
	t.Helper()
	for {
		page, err := s.Next(context.Background())
		require.NoError(t, err)
		if len(page) == 0 {
			return pages
		}
		pages = append(pages, page)
	}
}

func TestScanner_PageBoundaries(t *testing.T) {
	cases := []struct {
		rows  int
		pages int
	}{
		{rows: 0, pages: 0},
		{rows: 1, pages: 1},
		{rows: 1000, pages: 1},
		{rows: 1001, pages: 2},
		{rows: 1999, pages: 2},
		{rows: 2000, pages: 2},
	}
	for _, tc := range cases {
		m := newMemStore()
		seedCandidates(m, tc.rows)

		pages := drain(t, NewScanner(m, testCutoff, DefaultPageSize))

		require.Len(t, pages, tc.pages, "rows=%d", tc.rows)
		seen := make(map[int64]bool, tc.rows)
		var last int64
		for _, page := range pages {
			assert.LessOrEqual(t, len(page), DefaultPageSize)
			for _, ref := range page {
				assert.Greater(t, ref.ID, last, "ids must strictly increase")
				assert.False(t, seen[ref.ID], "id %d visited twice", ref.ID)
				seen[ref.ID] = true
				last = ref.ID
			}
		}
		assert.Len(t, seen, tc.rows)
	}
}

func TestScanner_StopsAfterShortPage(t *testing.T) {
	m := newMemStore()
	seedCandidates(m, 5)

	s := NewScanner(m, testCutoff, 10)
	pages := drain(t, s)

	require.Len(t, pages, 1)
	assert.Equal(t, 1, m.calls["scan"])
	assert.Equal(t, int64(5), s.Cursor())
}

func TestScanner_SkipsRowsPastCutoffOrInactive(t *testing.T) {
	m := newMemStore()
	m.addEnrollment(1, 1, 1, testCutoff)
	m.addEnrollment(2, 1, 2, testCutoff.Add(time.Second))
	m.addEnrollment(3, 1, 3, testCutoff.Add(-time.Hour)).Status = StatusDropout
	m.addEnrollment(4, 1, 4, testCutoff.Add(-time.Hour))

	pages := drain(t, NewScanner(m, testCutoff, 10))

	require.Len(t, pages, 1)
	assert.Equal(t, []Ref{{ID: 1, CourseID: 1, StudentID: 1}, {ID: 4, CourseID: 1, StudentID: 4}}, pages[0])
}

func TestScanner_StartAfterResumesFromCursor(t *testing.T) {
	m := newMemStore()
	seedCandidates(m, 25)

	pages := drain(t, NewScanner(m, testCutoff, 10).StartAfter(20))

	require.Len(t, pages, 1)
	assert.Equal(t, int64(21), pages[0][0].ID)
	assert.Len(t, pages[0], 5)
}

func TestScanner_DefaultsPageSize(t *testing.T) {
	s := NewScanner(newMemStore(), testCutoff, 0)
	assert.Equal(t, DefaultPageSize, s.size)
}

func TestScanner_WrapsStoreErrors(t *testing.T) {
	m := newMemStore()
	seedCandidates(m, 3)
	boom := errors.New("connection reset")
	m.failWith("scan", boom)

	_, err := NewScanner(m, testCutoff, 10).Next(context.Background())

	require.Error(t, err)
	assert.True(t, IsStorage(err))
	assert.ErrorIs(t, err, boom)
}
