package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Logic06183/Climate-API/internal/climate"
	"github.com/Logic06183/Climate-API/internal/export"
	"github.com/Logic06183/Climate-API/internal/metrics"
	"github.com/Logic06183/Climate-API/internal/models"
)

// VariableInfo describes one requestable variable for API clients.
type VariableInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Units       string   `json:"units"`
	Columns     []string `json:"columns"`
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	catalog := climate.Catalog()
	out := make([]VariableInfo, 0, len(catalog))
	for _, spec := range catalog {
		out = append(out, VariableInfo{
			Name:        spec.Name,
			Description: spec.Description,
			Units:       spec.Units,
			Columns:     spec.Columns(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PresetLocations())
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	results, err := s.geocoder.Search(r.Context(), query)
	if err != nil {
		log.Printf("api: geocode %q: %v", query, err)
		writeError(w, http.StatusBadGateway, "geocoding failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// ExtractRequest is the POST /api/extract body.
type ExtractRequest struct {
	LocationName string   `json:"location_name" validate:"required"`
	Latitude     float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64  `json:"longitude" validate:"gte=-180,lte=180"`
	StartDate    string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	BufferKM     float64  `json:"buffer_km" validate:"omitempty,gte=1,lte=100"`
	Variables    []string `json:"variables"`
	ChunkDays    int      `json:"chunk_days" validate:"omitempty,gte=1,lte=366"`
}

// ExtractResponse summarizes a completed extraction run.
type ExtractResponse struct {
	Status           string                `json:"status"`
	Message          string                `json:"message"`
	Location         string                `json:"location"`
	ExtractionID     int64                 `json:"extraction_id"`
	RecordsExtracted int                   `json:"records_extracted"`
	Stats            map[string]StatsBlock `json:"stats,omitempty"`
	Warnings         []climate.Warning     `json:"warnings,omitempty"`
	Data             *ExtractData          `json:"data,omitempty"`
	Downloads        map[string]string     `json:"downloads,omitempty"`
}

// StatsBlock carries summary statistics for one variable family.
type StatsBlock struct {
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Mean  *float64 `json:"mean,omitempty"`
	Total *float64 `json:"total,omitempty"`
}

// ExtractData embeds the extracted series in the response body.
type ExtractData struct {
	Daily climate.SeriesResult `json:"daily"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "no climate data source configured")
		return
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)

	series, warnings, err := s.extractor.Extract(r.Context(), climate.Point{Lat: req.Latitude, Lon: req.Longitude}, start, end, req.Variables, req.ChunkDays)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, climate.ErrInvalidRange) || errors.Is(err, climate.ErrUnknownVariable) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("api: extract %s: %v", req.LocationName, err)
		writeError(w, http.StatusInternalServerError, "extraction failed")
		return
	}
	metrics.ChunksSkippedTotal.Add(float64(len(warnings)))

	resp := ExtractResponse{
		Location:         req.LocationName,
		RecordsExtracted: len(series),
		Warnings:         warnings,
	}

	if len(series) == 0 {
		metrics.ExtractionsTotal.WithLabelValues("empty").Inc()
		resp.Status = "empty"
		resp.Message = "No data extracted for the requested period"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	id, err := s.saveRun(req, start, end, series, warnings)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		log.Printf("api: save extraction %s: %v", req.LocationName, err)
		writeError(w, http.StatusInternalServerError, "failed to store extraction")
		return
	}
	metrics.ExtractionsTotal.WithLabelValues("success").Inc()

	resp.Status = "success"
	resp.Message = fmt.Sprintf("Successfully extracted %d records with %d variables", len(series), len(series.Columns()))
	resp.ExtractionID = id
	resp.Stats = summarize(series)
	resp.Data = &ExtractData{Daily: series}
	resp.Downloads = map[string]string{
		"daily_csv":   fmt.Sprintf("/api/extractions/%d/daily.csv", id),
		"monthly_csv": fmt.Sprintf("/api/extractions/%d/monthly.csv", id),
		"workbook":    fmt.Sprintf("/api/extractions/%d/data.xlsx", id),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) saveRun(req ExtractRequest, start, end time.Time, series climate.SeriesResult, warnings []climate.Warning) (int64, error) {
	warningsJSON := ""
	if len(warnings) > 0 {
		b, err := json.Marshal(warnings)
		if err != nil {
			return 0, fmt.Errorf("marshal warnings: %w", err)
		}
		warningsJSON = string(b)
	}

	bufferKM := req.BufferKM
	if bufferKM == 0 {
		bufferKM = 10
	}

	return s.store.SaveExtraction(models.Extraction{
		LocationName: req.LocationName,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		BufferKM:     bufferKM,
		StartDate:    start,
		EndDate:      end,
		Variables:    strings.Join(req.Variables, ","),
		WarningsJSON: warningsJSON,
	}, series)
}

// summarize computes the per-family response stats: temperature min/max/mean,
// precipitation total/mean/max and wind speed mean/max, each present only
// when its columns appear in the series.
func summarize(series climate.SeriesResult) map[string]StatsBlock {
	stats := make(map[string]StatsBlock)

	tmean := columnValues(series, "tmean_celsius")
	if len(tmean) > 0 {
		tmax := columnValues(series, "tmax_celsius")
		if len(tmax) == 0 {
			tmax = tmean
		}
		stats["temperature"] = StatsBlock{
			Min:  fround(minOf(tmean)),
			Max:  fround(maxOf(tmax)),
			Mean: fround(meanOf(tmean)),
		}
	}

	if precip := columnValues(series, "precipitation_mm"); len(precip) > 0 {
		stats["precipitation"] = StatsBlock{
			Total: fround(sumOf(precip)),
			Mean:  fround(meanOf(precip)),
			Max:   fround(maxOf(precip)),
		}
	}

	if wind := columnValues(series, "wind_speed_ms"); len(wind) > 0 {
		stats["wind_speed"] = StatsBlock{
			Mean: fround(meanOf(wind)),
			Max:  fround(maxOf(wind)),
		}
	}

	return stats
}

func columnValues(series climate.SeriesResult, col string) []float64 {
	var out []float64
	for _, rec := range series {
		if v, ok := rec.Values[col]; ok {
			out = append(out, v)
		}
	}
	return out
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func sumOf(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func meanOf(vals []float64) float64 {
	return sumOf(vals) / float64(len(vals))
}

func fround(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}

func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.store.ListExtractions(limit)
	if err != nil {
		log.Printf("api: list extractions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list extractions")
		return
	}

	out := make([]ExtractionSummary, 0, len(runs))
	for _, ex := range runs {
		out = append(out, summaryFrom(ex))
	}
	writeJSON(w, http.StatusOK, out)
}

// ExtractionSummary is one stored run as listed by the API.
type ExtractionSummary struct {
	ID           int64    `json:"id"`
	LocationName string   `json:"location_name"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	BufferKM     float64  `json:"buffer_km"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Variables    []string `json:"variables"`
	RecordCount  int      `json:"record_count"`
	WarningCount int      `json:"warning_count"`
	CreatedAt    string   `json:"created_at"`
}

func summaryFrom(ex models.Extraction) ExtractionSummary {
	var variables []string
	if ex.Variables != "" {
		variables = strings.Split(ex.Variables, ",")
	}
	warningCount := 0
	if ex.WarningsJSON != "" {
		var warnings []climate.Warning
		if err := json.Unmarshal([]byte(ex.WarningsJSON), &warnings); err == nil {
			warningCount = len(warnings)
		}
	}
	return ExtractionSummary{
		ID:           ex.ID,
		LocationName: ex.LocationName,
		Latitude:     ex.Latitude,
		Longitude:    ex.Longitude,
		BufferKM:     ex.BufferKM,
		StartDate:    ex.StartDate.Format("2006-01-02"),
		EndDate:      ex.EndDate.Format("2006-01-02"),
		Variables:    variables,
		RecordCount:  ex.RecordCount,
		WarningCount: warningCount,
		CreatedAt:    ex.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// loadRun fetches a stored extraction and its daily series, writing the
// appropriate error response when not found.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*models.Extraction, climate.SeriesResult, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid extraction id")
		return nil, nil, false
	}

	ex, err := s.store.GetExtraction(id)
	if err != nil {
		log.Printf("api: get extraction %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load extraction")
		return nil, nil, false
	}
	if ex == nil {
		writeError(w, http.StatusNotFound, "extraction not found")
		return nil, nil, false
	}

	series, err := s.store.GetDailyRecords(id)
	if err != nil {
		log.Printf("api: get daily records %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load daily records")
		return nil, nil, false
	}
	return ex, series, true
}

func (s *Server) handleDailyCSV(w http.ResponseWriter, r *http.Request) {
	ex, series, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	name := export.DailyCSVName(ex.LocationName, ex.StartDate.Year(), ex.EndDate.Year())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.WriteDailyCSV(w, series); err != nil {
		log.Printf("api: write daily csv: %v", err)
	}
}

func (s *Server) handleMonthlyCSV(w http.ResponseWriter, r *http.Request) {
	ex, series, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	name := export.MonthlyCSVName(ex.LocationName, ex.StartDate.Year(), ex.EndDate.Year())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.WriteMonthlyCSV(w, climate.AggregateMonthly(series)); err != nil {
		log.Printf("api: write monthly csv: %v", err)
	}
}

func (s *Server) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	ex, series, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	meta := export.Metadata{LocationName: ex.LocationName}
	if ex.Variables != "" {
		meta.Variables = strings.Split(ex.Variables, ",")
	}

	name := export.WorkbookName(ex.LocationName, ex.StartDate.Year(), ex.EndDate.Year())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.WriteWorkbook(w, meta, series, climate.AggregateMonthly(series)); err != nil {
		log.Printf("api: write workbook: %v", err)
	}
}
