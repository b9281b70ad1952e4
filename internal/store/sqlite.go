package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Logic06183/Climate-API/internal/climate"
	"github.com/Logic06183/Climate-API/internal/models"
)

// Store persists extraction runs and their daily records so previous results
// can be listed, served and re-exported without hitting the remote source.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveExtraction inserts the run and its daily records in one transaction
// and returns the new extraction ID.
func (s *Store) SaveExtraction(ex models.Extraction, series climate.SeriesResult) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO extractions (location_name, latitude, longitude, buffer_km, start_date, end_date, variables, record_count, warnings_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ex.LocationName, ex.Latitude, ex.Longitude, ex.BufferKM, ex.StartDate, ex.EndDate, ex.Variables, len(series), ex.WarningsJSON)
	if err != nil {
		return 0, fmt.Errorf("insert extraction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO daily_records (extraction_id, date, tmax_celsius, tmean_celsius, precipitation_mm, dewpoint_celsius, wind_u_ms, wind_v_ms, wind_speed_ms, solar_radiation_jm2, surface_pressure_pa, evapotranspiration_mm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(extraction_id, date) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare daily insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range series {
		dv := dailyFromRecord(id, rec)
		if _, err := stmt.Exec(dv.ExtractionID, dv.Date, dv.TmaxCelsius, dv.TmeanCelsius, dv.PrecipitationMM, dv.DewpointCelsius,
			dv.WindUMS, dv.WindVMS, dv.WindSpeedMS, dv.SolarRadiationJM2, dv.SurfacePressurePa, dv.EvapotranspirationMM); err != nil {
			return 0, fmt.Errorf("insert daily record %s: %w", rec.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// GetExtraction returns the stored run, or nil when the ID is unknown.
func (s *Store) GetExtraction(id int64) (*models.Extraction, error) {
	row := s.db.QueryRow(`
		SELECT id, location_name, latitude, longitude, buffer_km, start_date, end_date, variables, record_count, COALESCE(warnings_json, ''), created_at
		FROM extractions WHERE id = ?
	`, id)

	var ex models.Extraction
	err := row.Scan(&ex.ID, &ex.LocationName, &ex.Latitude, &ex.Longitude, &ex.BufferKM, &ex.StartDate, &ex.EndDate, &ex.Variables, &ex.RecordCount, &ex.WarningsJSON, &ex.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// ListExtractions returns the most recent runs, newest first.
func (s *Store) ListExtractions(limit int) ([]models.Extraction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, location_name, latitude, longitude, buffer_km, start_date, end_date, variables, record_count, COALESCE(warnings_json, ''), created_at
		FROM extractions ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Extraction
	for rows.Next() {
		var ex models.Extraction
		if err := rows.Scan(&ex.ID, &ex.LocationName, &ex.Latitude, &ex.Longitude, &ex.BufferKM, &ex.StartDate, &ex.EndDate, &ex.Variables, &ex.RecordCount, &ex.WarningsJSON, &ex.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// GetDailyRecords returns a run's daily series sorted ascending by date.
func (s *Store) GetDailyRecords(extractionID int64) (climate.SeriesResult, error) {
	rows, err := s.db.Query(`
		SELECT extraction_id, date, tmax_celsius, tmean_celsius, precipitation_mm, dewpoint_celsius, wind_u_ms, wind_v_ms, wind_speed_ms, solar_radiation_jm2, surface_pressure_pa, evapotranspiration_mm
		FROM daily_records WHERE extraction_id = ? ORDER BY date ASC
	`, extractionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series climate.SeriesResult
	for rows.Next() {
		var dv models.DailyValues
		if err := rows.Scan(&dv.ExtractionID, &dv.Date, &dv.TmaxCelsius, &dv.TmeanCelsius, &dv.PrecipitationMM, &dv.DewpointCelsius,
			&dv.WindUMS, &dv.WindVMS, &dv.WindSpeedMS, &dv.SolarRadiationJM2, &dv.SurfacePressurePa, &dv.EvapotranspirationMM); err != nil {
			return nil, err
		}
		series = append(series, recordFromDaily(dv))
	}
	return series, rows.Err()
}

func dailyFromRecord(extractionID int64, rec climate.DailyRecord) models.DailyValues {
	pick := func(col string) sql.NullFloat64 {
		v, ok := rec.Values[col]
		return sql.NullFloat64{Float64: v, Valid: ok}
	}
	return models.DailyValues{
		ExtractionID:         extractionID,
		Date:                 rec.Date,
		TmaxCelsius:          pick("tmax_celsius"),
		TmeanCelsius:         pick("tmean_celsius"),
		PrecipitationMM:      pick("precipitation_mm"),
		DewpointCelsius:      pick("dewpoint_celsius"),
		WindUMS:              pick("wind_u_ms"),
		WindVMS:              pick("wind_v_ms"),
		WindSpeedMS:          pick("wind_speed_ms"),
		SolarRadiationJM2:    pick("solar_radiation_jm2"),
		SurfacePressurePa:    pick("surface_pressure_pa"),
		EvapotranspirationMM: pick("evapotranspiration_mm"),
	}
}

func recordFromDaily(dv models.DailyValues) climate.DailyRecord {
	values := make(map[string]float64)
	put := func(col string, v sql.NullFloat64) {
		if v.Valid {
			values[col] = v.Float64
		}
	}
	put("tmax_celsius", dv.TmaxCelsius)
	put("tmean_celsius", dv.TmeanCelsius)
	put("precipitation_mm", dv.PrecipitationMM)
	put("dewpoint_celsius", dv.DewpointCelsius)
	put("wind_u_ms", dv.WindUMS)
	put("wind_v_ms", dv.WindVMS)
	put("wind_speed_ms", dv.WindSpeedMS)
	put("solar_radiation_jm2", dv.SolarRadiationJM2)
	put("surface_pressure_pa", dv.SurfacePressurePa)
	put("evapotranspiration_mm", dv.EvapotranspirationMM)

	return climate.DailyRecord{Date: normalizeDate(dv.Date), Values: values}
}

func normalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
