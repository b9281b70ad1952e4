package climate

import (
	"math"
	"sort"
	"time"
)

// ColumnStats holds monthly statistics for one output column, rounded to two
// decimal places. Std is the sample standard deviation (N-1 denominator) and
// is nil when fewer than two values are present.
type ColumnStats struct {
	Mean  float64  `json:"mean"`
	Std   *float64 `json:"std"`
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
	Count int      `json:"count"`
}

// MonthlyStats aggregates one calendar month of daily records.
type MonthlyStats struct {
	Year    int                    `json:"year"`
	Month   time.Month             `json:"month"`
	Columns map[string]ColumnStats `json:"columns"`
}

// Label formats the month as YYYY-MM.
func (m MonthlyStats) Label() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

type monthKey struct {
	year  int
	month time.Month
}

// AggregateMonthly groups a series by calendar month and computes mean,
// sample standard deviation, min, max and non-missing count per column.
// Months with no records are never emitted; the result is sorted ascending
// by (year, month).
func AggregateMonthly(sr SeriesResult) []MonthlyStats {
	grouped := make(map[monthKey]map[string][]float64)
	for _, rec := range sr {
		key := monthKey{year: rec.Date.Year(), month: rec.Date.Month()}
		if grouped[key] == nil {
			grouped[key] = make(map[string][]float64)
		}
		for col, v := range rec.Values {
			grouped[key][col] = append(grouped[key][col], v)
		}
	}

	keys := make([]monthKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	out := make([]MonthlyStats, 0, len(keys))
	for _, key := range keys {
		columns := make(map[string]ColumnStats, len(grouped[key]))
		for col, vals := range grouped[key] {
			columns[col] = columnStats(vals)
		}
		out = append(out, MonthlyStats{Year: key.year, Month: key.month, Columns: columns})
	}
	return out
}

func columnStats(vals []float64) ColumnStats {
	n := len(vals)
	min, max := vals[0], vals[0]
	var sum float64
	for _, v := range vals {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(n)

	stats := ColumnStats{
		Mean:  round2(mean),
		Min:   round2(min),
		Max:   round2(max),
		Count: n,
	}

	if n > 1 {
		var ss float64
		for _, v := range vals {
			d := v - mean
			ss += d * d
		}
		std := round2(math.Sqrt(ss / float64(n-1)))
		stats.Std = &std
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
