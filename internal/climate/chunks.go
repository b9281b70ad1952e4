package climate

import (
	"fmt"
	"time"
)

// DefaultChunkDays bounds a single remote query; ERA5 region queries over
// longer spans routinely hit provider payload limits.
const DefaultChunkDays = 90

// Chunk is a half-open date sub-interval [Start, End) of the full requested
// range. End is the day after the last covered date.
type Chunk struct {
	Start time.Time
	End   time.Time
}

// LastDay returns the last calendar date the chunk covers.
func (c Chunk) LastDay() time.Time {
	return c.End.AddDate(0, 0, -1)
}

// Days returns the number of calendar days the chunk covers.
func (c Chunk) Days() int {
	return int(c.End.Sub(c.Start).Hours() / 24)
}

func (c Chunk) String() string {
	return fmt.Sprintf("%s to %s", c.Start.Format("2006-01-02"), c.LastDay().Format("2006-01-02"))
}

// PlanChunks splits the inclusive interval [start, end] into contiguous
// chunks of at most chunkDays days. The final chunk is truncated so the
// union covers exactly the requested interval with no gaps or overlaps.
func PlanChunks(start, end time.Time, chunkDays int) ([]Chunk, error) {
	if chunkDays <= 0 {
		return nil, fmt.Errorf("%w: chunk days must be positive, got %d", ErrInvalidRange, chunkDays)
	}

	start = midnightUTC(start)
	end = midnightUTC(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s",
			ErrInvalidRange, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	limit := end.AddDate(0, 0, 1)
	var chunks []Chunk
	for cur := start; cur.Before(limit); {
		chunkEnd := cur.AddDate(0, 0, chunkDays)
		if chunkEnd.After(limit) {
			chunkEnd = limit
		}
		chunks = append(chunks, Chunk{Start: cur, End: chunkEnd})
		cur = chunkEnd
	}
	return chunks, nil
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
