package models

import (
	"database/sql"
	"time"
)

// Extraction is one stored extraction run.
type Extraction struct {
	ID           int64
	LocationName string
	Latitude     float64
	Longitude    float64
	BufferKM     float64
	StartDate    time.Time
	EndDate      time.Time
	Variables    string // comma-separated requested variable names
	RecordCount  int
	WarningsJSON string
	CreatedAt    time.Time
}

// DailyValues is one stored daily record, one nullable column per output
// variable column.
type DailyValues struct {
	ExtractionID         int64
	Date                 time.Time
	TmaxCelsius          sql.NullFloat64
	TmeanCelsius         sql.NullFloat64
	PrecipitationMM      sql.NullFloat64
	DewpointCelsius      sql.NullFloat64
	WindUMS              sql.NullFloat64
	WindVMS              sql.NullFloat64
	WindSpeedMS          sql.NullFloat64
	SolarRadiationJM2    sql.NullFloat64
	SurfacePressurePa    sql.NullFloat64
	EvapotranspirationMM sql.NullFloat64
}

// PresetLocation is a ready-made study location offered by the API.
type PresetLocation struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
}
