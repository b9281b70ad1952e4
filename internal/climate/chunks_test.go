package climate

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPlanChunks_TenDaysInFives(t *testing.T) {
	chunks, err := PlanChunks(date(2023, 1, 1), date(2023, 1, 10), 5)
	if err != nil {
		t.Fatalf("PlanChunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if !chunks[0].Start.Equal(date(2023, 1, 1)) || !chunks[0].End.Equal(date(2023, 1, 6)) {
		t.Errorf("chunk 0 = %v, want [2023-01-01, 2023-01-06)", chunks[0])
	}
	if !chunks[1].Start.Equal(date(2023, 1, 6)) || !chunks[1].LastDay().Equal(date(2023, 1, 10)) {
		t.Errorf("chunk 1 = %v, want 2023-01-06 through 2023-01-10", chunks[1])
	}
}

func TestPlanChunks_CoverageAndCount(t *testing.T) {
	cases := []struct {
		start, end time.Time
		chunkDays  int
	}{
		{date(2023, 1, 1), date(2023, 1, 1), 90},
		{date(2023, 1, 1), date(2023, 12, 31), 90},
		{date(2016, 4, 1), date(2022, 3, 31), 90},
		{date(2023, 1, 1), date(2023, 3, 1), 1},
		{date(2020, 2, 1), date(2020, 3, 1), 29},
	}

	for _, tc := range cases {
		chunks, err := PlanChunks(tc.start, tc.end, tc.chunkDays)
		if err != nil {
			t.Fatalf("PlanChunks(%s, %s, %d): %v", tc.start, tc.end, tc.chunkDays, err)
		}

		days := int(tc.end.Sub(tc.start).Hours()/24) + 1
		wantCount := (days + tc.chunkDays - 1) / tc.chunkDays
		if len(chunks) != wantCount {
			t.Errorf("%s..%s/%d: len(chunks) = %d, want %d", tc.start, tc.end, tc.chunkDays, len(chunks), wantCount)
		}

		// Contiguous, no gaps or overlaps, exact coverage.
		if !chunks[0].Start.Equal(tc.start) {
			t.Errorf("first chunk starts %s, want %s", chunks[0].Start, tc.start)
		}
		for i := 1; i < len(chunks); i++ {
			if !chunks[i].Start.Equal(chunks[i-1].End) {
				t.Errorf("chunk %d starts %s, previous ends %s", i, chunks[i].Start, chunks[i-1].End)
			}
		}
		last := chunks[len(chunks)-1]
		if !last.LastDay().Equal(tc.end) {
			t.Errorf("last chunk covers through %s, want %s", last.LastDay(), tc.end)
		}
		for i, c := range chunks {
			if c.Days() > tc.chunkDays {
				t.Errorf("chunk %d spans %d days, max %d", i, c.Days(), tc.chunkDays)
			}
		}
	}
}

func TestPlanChunks_InvalidRange(t *testing.T) {
	if _, err := PlanChunks(date(2023, 2, 1), date(2023, 1, 1), 90); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("reversed range: err = %v, want ErrInvalidRange", err)
	}
	if _, err := PlanChunks(date(2023, 1, 1), date(2023, 2, 1), 0); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("zero chunk days: err = %v, want ErrInvalidRange", err)
	}
	if _, err := PlanChunks(date(2023, 1, 1), date(2023, 2, 1), -5); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("negative chunk days: err = %v, want ErrInvalidRange", err)
	}
}

func TestPlanChunks_SingleDay(t *testing.T) {
	chunks, err := PlanChunks(date(2023, 6, 15), date(2023, 6, 15), 90)
	if err != nil {
		t.Fatalf("PlanChunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].Days() != 1 {
		t.Errorf("Days() = %d, want 1", chunks[0].Days())
	}
}
