package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Logic06183/Climate-API/internal/climate"
	"github.com/Logic06183/Climate-API/internal/geocode"
	"github.com/Logic06183/Climate-API/internal/store"
)

// stubSource serves synthetic rows for every queried day, or fails every
// query when err is set.
type stubSource struct {
	err error
}

func (s *stubSource) QueryRegion(ctx context.Context, bands []string, p climate.Point, start, end time.Time, scale int) ([]climate.RegionRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	var rows []climate.RegionRow
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		values := make(map[string]*float64)
		for _, band := range bands {
			v := 0.0
			switch band {
			case "temperature_2m_max":
				v = 300.0
			case "temperature_2m":
				v = 290.0
			case "total_precipitation_sum":
				v = 0.001
			}
			vv := v
			values[band] = &vv
		}
		rows = append(rows, climate.RegionRow{TimeMS: d.UnixMilli(), Values: values})
	}
	return rows, nil
}

func setupServer(t *testing.T, source climate.RegionSource) *Server {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var extractor *climate.Extractor
	if source != nil {
		extractor = climate.NewExtractor(source, climate.Options{})
	}
	return NewServer(st, extractor, geocode.NewService(), "0")
}

func extractBody(start, end string) string {
	return fmt.Sprintf(`{
		"location_name": "Soweto, Johannesburg",
		"latitude": -26.2678,
		"longitude": 27.8607,
		"start_date": %q,
		"end_date": %q,
		"variables": ["temperature", "precipitation"]
	}`, start, end)
}

func postExtract(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	handler := setupServer(t, &stubSource{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
	if body["source_configured"] != true {
		t.Errorf("source_configured = %v, want true", body["source_configured"])
	}
}

func TestVariables(t *testing.T) {
	handler := setupServer(t, &stubSource{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/variables", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var vars []VariableInfo
	if err := json.NewDecoder(rec.Body).Decode(&vars); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(vars) != 7 {
		t.Fatalf("len(vars) = %d, want 7", len(vars))
	}
	if vars[0].Name != "temperature" {
		t.Errorf("first variable = %q", vars[0].Name)
	}
	if len(vars[0].Columns) != 2 {
		t.Errorf("temperature columns = %v", vars[0].Columns)
	}
}

func TestPresets(t *testing.T) {
	handler := setupServer(t, &stubSource{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/presets", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var presets []map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&presets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(presets) != 12 {
		t.Fatalf("len(presets) = %d, want 12", len(presets))
	}
	if presets[0]["name"] != "Soweto, Johannesburg" {
		t.Errorf("first preset = %v", presets[0]["name"])
	}
}

func TestExtract(t *testing.T) {
	handler := setupServer(t, &stubSource{}).Handler()

	rec := postExtract(t, handler, extractBody("2023-01-01", "2023-01-10"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ExtractResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.RecordsExtracted != 10 {
		t.Errorf("records_extracted = %d, want 10", resp.RecordsExtracted)
	}
	if resp.ExtractionID == 0 {
		t.Error("extraction_id not set")
	}

	temp, ok := resp.Stats["temperature"]
	if !ok {
		t.Fatal("missing temperature stats")
	}
	if temp.Mean == nil || *temp.Mean != 16.85 {
		t.Errorf("temperature mean = %v, want 16.85", temp.Mean)
	}
	precip, ok := resp.Stats["precipitation"]
	if !ok {
		t.Fatal("missing precipitation stats")
	}
	if precip.Total == nil || *precip.Total != 10 {
		t.Errorf("precipitation total = %v, want 10", precip.Total)
	}

	if resp.Downloads["daily_csv"] != fmt.Sprintf("/api/extractions/%d/daily.csv", resp.ExtractionID) {
		t.Errorf("daily_csv url = %q", resp.Downloads["daily_csv"])
	}
	if resp.Data == nil || len(resp.Data.Daily) != 10 {
		t.Error("daily data missing from response")
	}
}

func TestExtract_ValidationError(t *testing.T) {
	handler := setupServer(t, &stubSource{}).Handler()

	body := `{"location_name": "x", "latitude": 100, "longitude": 0, "start_date": "2023-01-01", "end_date": "2023-01-10"}`
	rec := postExtract(t, handler, body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExtract_InvalidRange(t *testing.T) {
	handler := setupServer(t, &stubSource{}).Handler()

	rec := postExtract(t, handler, extractBody("2023-02-01", "2023-01-01"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExtract_EmptyResult(t *testing.T) {
	srv := setupServer(t, &stubSource{err: errors.New("quota exceeded")})
	handler := srv.Handler()

	rec := postExtract(t, handler, extractBody("2023-01-01", "2023-01-10"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ExtractResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "empty" {
		t.Errorf("status = %q, want empty", resp.Status)
	}
	if len(resp.Warnings) != 1 {
		t.Errorf("len(warnings) = %d, want 1", len(resp.Warnings))
	}

	// Nothing is stored for an empty run.
	req := httptest.NewRequest(http.MethodGet, "/api/extractions", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, req)
	var list []ExtractionSummary
	if err := json.NewDecoder(listRec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("len(list) = %d, want 0", len(list))
	}
}

func TestExtract_NoSourceConfigured(t *testing.T) {
	handler := setupServer(t, nil).Handler()

	rec := postExtract(t, handler, extractBody("2023-01-01", "2023-01-10"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestListAndDownload(t *testing.T) {
	handler := setupServer(t, &stubSource{}).Handler()

	rec := postExtract(t, handler, extractBody("2023-01-01", "2023-01-10"))
	var resp ExtractResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/extractions", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, listReq)
	var list []ExtractionSummary
	if err := json.NewDecoder(listRec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	if list[0].LocationName != "Soweto, Johannesburg" || list[0].RecordCount != 10 {
		t.Errorf("listed run = %+v", list[0])
	}

	csvReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/extractions/%d/daily.csv", resp.ExtractionID), nil)
	csvRec := httptest.NewRecorder()
	handler.ServeHTTP(csvRec, csvReq)
	if csvRec.Code != http.StatusOK {
		t.Fatalf("csv status = %d", csvRec.Code)
	}
	if got := csvRec.Header().Get("Content-Disposition"); !strings.Contains(got, "soweto_johannesburg_daily_climate_2023_2023.csv") {
		t.Errorf("Content-Disposition = %q", got)
	}
	lines := strings.Split(strings.TrimSpace(csvRec.Body.String()), "\n")
	if len(lines) != 11 {
		t.Errorf("csv lines = %d, want 11 (header + 10)", len(lines))
	}
	if !strings.HasPrefix(lines[0], "date,tmax_celsius") {
		t.Errorf("csv header = %q", lines[0])
	}
}

func TestDownload_NotFound(t *testing.T) {
	handler := setupServer(t, &stubSource{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/extractions/999/daily.csv", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGeocodeEndpoint(t *testing.T) {
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"name": "Soweto", "display_name": "Soweto, Johannesburg, South Africa", "lat": "-26.2678", "lon": "27.8607", "type": "suburb"}]`)
	}))
	defer nominatim.Close()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	srv := NewServer(st, nil, geocode.NewService(geocode.WithBaseURL(nominatim.URL)), "0")
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/geocode?q=Soweto", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Results []geocode.Result `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].Lat != -26.2678 {
		t.Errorf("results = %+v", body.Results)
	}

	missingReq := httptest.NewRequest(http.MethodGet, "/api/geocode", nil)
	missingRec := httptest.NewRecorder()
	handler.ServeHTTP(missingRec, missingReq)
	if missingRec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", missingRec.Code)
	}
}
