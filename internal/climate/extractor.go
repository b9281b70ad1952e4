package climate

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

// Point is a geographic sampling location.
type Point struct {
	Lat float64
	Lon float64
}

// RegionRow is one raw row from a region time-series query: an epoch
// timestamp in milliseconds plus band values. A nil value means the source
// had no data for that band on that day.
type RegionRow struct {
	TimeMS int64
	Values map[string]*float64
}

// RegionSource queries a remote gridded climate dataset for band values at a
// point over a half-open date interval [start, end). Implementations report
// network, auth and quota problems as errors.
type RegionSource interface {
	QueryRegion(ctx context.Context, bands []string, p Point, start, end time.Time, scaleMeters int) ([]RegionRow, error)
}

// DailyRecord holds one calendar date and the converted values keyed by
// output column. A column the source had no data for is simply absent.
type DailyRecord struct {
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}

// SeriesResult is a deduplicated daily record sequence sorted ascending by
// date. It may be empty when every chunk failed or returned no valid rows.
type SeriesResult []DailyRecord

// Warning records one skipped chunk. The extraction as a whole carries on
// past individual chunk failures; callers inspect warnings to see which date
// ranges are missing from the result.
type Warning struct {
	ChunkStart time.Time `json:"chunk_start"`
	ChunkEnd   time.Time `json:"chunk_end"` // last covered date, inclusive
	Message    string    `json:"message"`
}

// Options tune an Extractor. The zero value gets defaults applied.
type Options struct {
	ChunkDays    int           // maximum days per remote query, default DefaultChunkDays
	ScaleMeters  int           // sampling scale passed to the source, default 1000
	Concurrency  int           // concurrent chunk queries, default 1 (sequential)
	ChunkTimeout time.Duration // per-chunk deadline, 0 means none
}

func (o Options) withDefaults() Options {
	if o.ChunkDays <= 0 {
		o.ChunkDays = DefaultChunkDays
	}
	if o.ScaleMeters <= 0 {
		o.ScaleMeters = 1000
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}

// Extractor pulls daily climate records from a RegionSource in bounded
// chunks. It holds no state between calls; every Extract is independent and
// idempotent given stable remote data.
type Extractor struct {
	source RegionSource
	opts   Options
}

func NewExtractor(source RegionSource, opts Options) *Extractor {
	return &Extractor{source: source, opts: opts.withDefaults()}
}

// Extract plans chunks over [start, end], queries each one, flattens the
// rows into daily records, drops duplicate dates keeping the first seen in
// chunk order, and sorts ascending by date. A failed chunk is skipped and
// reported in the returned warnings; only invalid inputs produce an error.
// chunkDays overrides the configured chunk size when non-zero.
func (e *Extractor) Extract(ctx context.Context, p Point, start, end time.Time, variables []string, chunkDays int) (SeriesResult, []Warning, error) {
	specs, err := ResolveVariables(variables)
	if err != nil {
		return nil, nil, err
	}

	if chunkDays == 0 {
		chunkDays = e.opts.ChunkDays
	}
	chunks, err := PlanChunks(start, end, chunkDays)
	if err != nil {
		return nil, nil, err
	}

	bands := SourceBands(specs)

	chunkRows := make([][]DailyRecord, len(chunks))
	chunkErrs := make([]error, len(chunks))

	query := func(i int) {
		chunkCtx := ctx
		if e.opts.ChunkTimeout > 0 {
			var cancel context.CancelFunc
			chunkCtx, cancel = context.WithTimeout(ctx, e.opts.ChunkTimeout)
			defer cancel()
		}

		rows, err := e.source.QueryRegion(chunkCtx, bands, p, chunks[i].Start, chunks[i].End, e.opts.ScaleMeters)
		if err != nil {
			chunkErrs[i] = err
			return
		}
		chunkRows[i] = convertRows(rows, specs)
	}

	if e.opts.Concurrency == 1 {
		for i := range chunks {
			query(i)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, e.opts.Concurrency)
		for i := range chunks {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				query(i)
			}(i)
		}
		wg.Wait()
	}

	// Merge in chunk order so duplicate dates at chunk boundaries keep the
	// first-encountered row regardless of query completion order.
	var warnings []Warning
	seen := make(map[time.Time]bool)
	var result SeriesResult
	for i, chunk := range chunks {
		if err := chunkErrs[i]; err != nil {
			log.Printf("extract: skipping chunk %s: %v", chunk, err)
			warnings = append(warnings, Warning{
				ChunkStart: chunk.Start,
				ChunkEnd:   chunk.LastDay(),
				Message:    err.Error(),
			})
			continue
		}
		for _, rec := range chunkRows[i] {
			if seen[rec.Date] {
				continue
			}
			seen[rec.Date] = true
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, warnings, nil
}

// convertRows applies unit conversions and derivations to raw rows. A row
// with no valid value for any requested variable is dropped; a row valid for
// some variables keeps only those columns.
func convertRows(rows []RegionRow, specs []VariableSpec) []DailyRecord {
	var records []DailyRecord
	for _, row := range rows {
		values := make(map[string]float64)
		for _, spec := range specs {
			for _, b := range spec.Bands {
				raw, ok := row.Values[b.Band]
				if !ok || raw == nil {
					continue
				}
				v := *raw
				if b.Convert != nil {
					v = b.Convert(v)
				}
				values[b.Column] = v
			}
			if spec.Derive != nil {
				if v, ok := spec.Derive(values); ok {
					values[spec.DerivedColumn] = v
				}
			}
		}
		if len(values) == 0 {
			continue
		}
		records = append(records, DailyRecord{
			Date:   midnightUTC(time.UnixMilli(row.TimeMS).UTC()),
			Values: values,
		})
	}
	return records
}

// Columns returns the output columns present anywhere in the result, in
// catalog order.
func (sr SeriesResult) Columns() []string {
	present := make(map[string]bool)
	for _, rec := range sr {
		for col := range rec.Values {
			present[col] = true
		}
	}
	var cols []string
	for _, spec := range variableCatalog {
		for _, col := range spec.Columns() {
			if present[col] {
				cols = append(cols, col)
			}
		}
	}
	return cols
}
