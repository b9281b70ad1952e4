package era5

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/Logic06183/Climate-API/internal/climate"
	"github.com/Logic06183/Climate-API/internal/metrics"
)

// DefaultDataset is the ERA5-Land daily aggregate collection.
const DefaultDataset = "ECMWF/ERA5_LAND/DAILY_AGGR"

// Config holds connection settings for the region time-series endpoint.
type Config struct {
	BaseURL string // e.g. https://ee-gateway.example.org
	Project string // Earth Engine cloud project
	APIKey  string
	Dataset string // defaults to DefaultDataset
}

// Client queries an Earth-Engine-style region endpoint for band time series.
// It implements climate.RegionSource.
type Client struct {
	cfg     Config
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewClient validates the configuration and returns a ready client. A
// missing base URL or project is a construction error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("era5: base URL required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("era5: project required")
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "era5",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		circuit: cb,
	}, nil
}

// Dataset returns the configured collection name.
func (c *Client) Dataset() string {
	return c.cfg.Dataset
}

// QueryRegion fetches band values at a point for the half-open interval
// [start, end). Rate-limit and quota responses are retried with exponential
// backoff; other failures are permanent for the attempt and surface to the
// caller, which skips the chunk.
func (c *Client) QueryRegion(ctx context.Context, bands []string, p climate.Point, start, end time.Time, scaleMeters int) ([]climate.RegionRow, error) {
	q := url.Values{}
	q.Set("dataset", c.cfg.Dataset)
	q.Set("bands", strings.Join(bands, ","))
	q.Set("lat", fmt.Sprintf("%f", p.Lat))
	q.Set("lon", fmt.Sprintf("%f", p.Lon))
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))
	q.Set("scale", fmt.Sprintf("%d", scaleMeters))
	q.Set("project", c.cfg.Project)

	u := fmt.Sprintf("%s/v1/region?%s", strings.TrimRight(c.cfg.BaseURL, "/"), q.Encode())

	began := time.Now()
	body, err := c.circuit.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, u)
	})
	metrics.RegionQueryLatency.WithLabelValues(c.cfg.Dataset).Observe(time.Since(began).Seconds())
	if err != nil {
		metrics.RegionQueriesTotal.WithLabelValues(c.cfg.Dataset, "error").Inc()
		return nil, err
	}
	metrics.RegionQueriesTotal.WithLabelValues(c.cfg.Dataset, "ok").Inc()

	return parseRegionTable(body.([]byte), bands)
}

func (c *Client) fetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("query region: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("query region: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// parseRegionTable decodes the getRegion wire format: a JSON array whose
// first row is a header ["id","longitude","latitude","time", <band>...] and
// whose remaining rows carry values positionally, null where the source has
// no pixel for that day.
func parseRegionTable(body []byte, bands []string) ([]climate.RegionRow, error) {
	var table [][]json.RawMessage
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, fmt.Errorf("unmarshal region table: %w", err)
	}
	if len(table) == 0 {
		return nil, nil
	}

	header := make([]string, len(table[0]))
	for i, cell := range table[0] {
		if err := json.Unmarshal(cell, &header[i]); err != nil {
			return nil, fmt.Errorf("unmarshal header column %d: %w", i, err)
		}
	}

	timeIdx := -1
	bandIdx := make(map[string]int, len(bands))
	for i, name := range header {
		if name == "time" {
			timeIdx = i
		}
		for _, band := range bands {
			if name == band {
				bandIdx[band] = i
			}
		}
	}
	if timeIdx == -1 {
		return nil, fmt.Errorf("region table missing time column (header %v)", header)
	}

	rows := make([]climate.RegionRow, 0, len(table)-1)
	for n, raw := range table[1:] {
		if len(raw) != len(header) {
			return nil, fmt.Errorf("region table row %d has %d columns, header has %d", n+1, len(raw), len(header))
		}

		var timeMS int64
		if err := json.Unmarshal(raw[timeIdx], &timeMS); err != nil {
			return nil, fmt.Errorf("unmarshal time in row %d: %w", n+1, err)
		}

		values := make(map[string]*float64, len(bands))
		for band, idx := range bandIdx {
			var v *float64
			if err := json.Unmarshal(raw[idx], &v); err != nil {
				return nil, fmt.Errorf("unmarshal band %s in row %d: %w", band, n+1, err)
			}
			values[band] = v
		}
		rows = append(rows, climate.RegionRow{TimeMS: timeMS, Values: values})
	}
	return rows, nil
}
