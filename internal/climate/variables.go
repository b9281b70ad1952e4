package climate

import (
	"fmt"
	"math"
)

const kelvinOffset = 273.15

// BandMapping ties one source band to an output column, with an optional
// unit conversion applied to raw band values.
type BandMapping struct {
	Band    string
	Column  string
	Convert func(float64) float64 // nil means no conversion
}

// VariableSpec describes one requestable climate variable: which ERA5-Land
// bands it reads, how raw values map to output columns, and any column
// derived from the converted values (wind speed from its components).
type VariableSpec struct {
	Name        string
	Description string
	Units       string
	Bands       []BandMapping

	DerivedColumn string
	Derive        func(byColumn map[string]float64) (float64, bool)
}

// Columns returns the variable's output column names, derived column last.
func (v VariableSpec) Columns() []string {
	cols := make([]string, 0, len(v.Bands)+1)
	for _, b := range v.Bands {
		cols = append(cols, b.Column)
	}
	if v.DerivedColumn != "" {
		cols = append(cols, v.DerivedColumn)
	}
	return cols
}

// variableCatalog is the fixed set of supported variables. Band names follow
// the ECMWF/ERA5_LAND/DAILY_AGGR collection.
var variableCatalog = []VariableSpec{
	{
		Name:        "temperature",
		Description: "Air temperature at 2m (daily max and mean)",
		Units:       "degrees Celsius",
		Bands: []BandMapping{
			{Band: "temperature_2m_max", Column: "tmax_celsius", Convert: kelvinToCelsius},
			{Band: "temperature_2m", Column: "tmean_celsius", Convert: kelvinToCelsius},
		},
	},
	{
		Name:        "precipitation",
		Description: "Total precipitation",
		Units:       "millimeters",
		Bands: []BandMapping{
			{Band: "total_precipitation_sum", Column: "precipitation_mm", Convert: metersToMillimeters},
		},
	},
	{
		Name:        "humidity",
		Description: "Humidity proxy (dewpoint temperature at 2m)",
		Units:       "degrees Celsius",
		Bands: []BandMapping{
			{Band: "dewpoint_temperature_2m", Column: "dewpoint_celsius", Convert: kelvinToCelsius},
		},
	},
	{
		Name:        "wind",
		Description: "Wind components at 10m and derived speed",
		Units:       "meters per second",
		Bands: []BandMapping{
			{Band: "u_component_of_wind_10m", Column: "wind_u_ms"},
			{Band: "v_component_of_wind_10m", Column: "wind_v_ms"},
		},
		DerivedColumn: "wind_speed_ms",
		Derive: func(byColumn map[string]float64) (float64, bool) {
			u, okU := byColumn["wind_u_ms"]
			v, okV := byColumn["wind_v_ms"]
			if !okU || !okV {
				return 0, false
			}
			return math.Sqrt(u*u + v*v), true
		},
	},
	{
		Name:        "solar",
		Description: "Surface solar radiation (downwards sum)",
		Units:       "joules per square meter",
		Bands: []BandMapping{
			{Band: "surface_solar_radiation_downwards_sum", Column: "solar_radiation_jm2"},
		},
	},
	{
		Name:        "pressure",
		Description: "Surface pressure",
		Units:       "pascals",
		Bands: []BandMapping{
			{Band: "surface_pressure", Column: "surface_pressure_pa"},
		},
	},
	{
		Name:        "evapotranspiration",
		Description: "Potential evapotranspiration",
		Units:       "millimeters",
		Bands: []BandMapping{
			{Band: "potential_evaporation_sum", Column: "evapotranspiration_mm", Convert: absMetersToMillimeters},
		},
	},
}

func kelvinToCelsius(v float64) float64        { return v - kelvinOffset }
func metersToMillimeters(v float64) float64    { return v * 1000 }
func absMetersToMillimeters(v float64) float64 { return math.Abs(v) * 1000 }

// Catalog returns all supported variables in canonical order.
func Catalog() []VariableSpec {
	out := make([]VariableSpec, len(variableCatalog))
	copy(out, variableCatalog)
	return out
}

// VariableNames returns the names of all supported variables.
func VariableNames() []string {
	names := make([]string, 0, len(variableCatalog))
	for _, v := range variableCatalog {
		names = append(names, v.Name)
	}
	return names
}

// ResolveVariables maps requested variable names to their specs. Duplicates
// are collapsed and the result follows catalog order regardless of request
// order, so output columns are deterministic. An empty request resolves to
// temperature only, matching the original extraction default.
func ResolveVariables(names []string) ([]VariableSpec, error) {
	if len(names) == 0 {
		names = []string{"temperature"}
	}

	requested := make(map[string]bool, len(names))
	for _, name := range names {
		found := false
		for _, spec := range variableCatalog {
			if spec.Name == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownVariable, name, VariableNames())
		}
		requested[name] = true
	}

	var specs []VariableSpec
	for _, spec := range variableCatalog {
		if requested[spec.Name] {
			specs = append(specs, spec)
		}
	}
	return specs, nil
}

// OutputColumns returns the union of output columns for the given specs,
// in catalog order.
func OutputColumns(specs []VariableSpec) []string {
	var cols []string
	for _, spec := range specs {
		cols = append(cols, spec.Columns()...)
	}
	return cols
}

// SourceBands returns the union of source bands for the given specs.
func SourceBands(specs []VariableSpec) []string {
	var bands []string
	for _, spec := range specs {
		for _, b := range spec.Bands {
			bands = append(bands, b.Band)
		}
	}
	return bands
}
