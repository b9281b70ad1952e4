package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/Logic06183/Climate-API/internal/metrics"
)

const (
	nominatimURL     = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent = "Climate-API/1.0"
	defaultLimit     = 5
)

// Result is one geocoding match.
type Result struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Type        string  `json:"type"`
}

// Service resolves place names to coordinates. Nominatim is the default
// backend (no key required); when a Google API key is configured the Google
// geocoder is used instead.
type Service struct {
	client    *http.Client
	baseURL   string
	userAgent string
	googleKey string
}

// Option configures a Service.
type Option func(*Service)

// WithBaseURL overrides the Nominatim endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = u }
}

// WithGoogleKey switches the service to the Google geocoding backend.
func WithGoogleKey(key string) Option {
	return func(s *Service) { s.googleKey = key }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   nominatimURL,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search geocodes a free-text query, returning up to defaultLimit matches.
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("geocode: empty query")
	}
	if s.googleKey != "" {
		return s.searchGoogle(query)
	}
	return s.searchNominatim(ctx, query)
}

func (s *Service) searchGoogle(query string) ([]Result, error) {
	geocoder.ApiKey = s.googleKey
	location, err := geocoder.Geocoding(geocoder.Address{City: query})
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("google", "error").Inc()
		return nil, fmt.Errorf("google geocode %q: %w", query, err)
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("google", "ok").Inc()

	return []Result{{
		Name:        query,
		DisplayName: query,
		Lat:         location.Latitude,
		Lon:         location.Longitude,
		Type:        "location",
	}}, nil
}

func (s *Service) searchNominatim(ctx context.Context, query string) ([]Result, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(defaultLimit))
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("nominatim", "error").Inc()
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeRequestsTotal.WithLabelValues("nominatim", "error").Inc()
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocode %q: status %d: %s", query, resp.StatusCode, string(b))
	}

	var payload []struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		Type        string `json:"type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("nominatim", "error").Inc()
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("nominatim", "ok").Inc()

	results := make([]Result, 0, len(payload))
	for _, item := range payload {
		lat, err := strconv.ParseFloat(item.Lat, 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(item.Lon, 64)
		if err != nil {
			continue
		}
		name := item.Name
		if name == "" {
			name = item.DisplayName
		}
		results = append(results, Result{
			Name:        name,
			DisplayName: item.DisplayName,
			Lat:         lat,
			Lon:         lon,
			Type:        item.Type,
		})
	}
	return results, nil
}
