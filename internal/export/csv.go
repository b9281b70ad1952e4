package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Logic06183/Climate-API/internal/climate"
)

// WriteDailyCSV writes one row per daily record with a date column followed
// by every output column present in the series. Missing values are empty
// cells, never zeros.
func WriteDailyCSV(w io.Writer, series climate.SeriesResult) error {
	cw := csv.NewWriter(w)

	columns := series.Columns()
	if err := cw.Write(append([]string{"date"}, columns...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns)+1)
	for _, rec := range series {
		row[0] = rec.Date.Format("2006-01-02")
		for i, col := range columns {
			if v, ok := rec.Values[col]; ok {
				row[i+1] = formatFloat(v)
			} else {
				row[i+1] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", row[0], err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteMonthlyCSV writes one row per month with flattened per-column stats
// (<column>_mean, <column>_std, <column>_min, <column>_max, <column>_count).
func WriteMonthlyCSV(w io.Writer, monthly []climate.MonthlyStats) error {
	cw := csv.NewWriter(w)

	columns := monthlyColumns(monthly)
	header := []string{"month"}
	for _, col := range columns {
		header = append(header, col+"_mean", col+"_std", col+"_min", col+"_max", col+"_count")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, m := range monthly {
		row := []string{m.Label()}
		for _, col := range columns {
			stats, ok := m.Columns[col]
			if !ok {
				row = append(row, "", "", "", "", "0")
				continue
			}
			std := ""
			if stats.Std != nil {
				std = formatFloat(*stats.Std)
			}
			row = append(row, formatFloat(stats.Mean), std, formatFloat(stats.Min), formatFloat(stats.Max), strconv.Itoa(stats.Count))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", m.Label(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// monthlyColumns returns the union of columns across months in catalog order.
func monthlyColumns(monthly []climate.MonthlyStats) []string {
	present := make(map[string]bool)
	for _, m := range monthly {
		for col := range m.Columns {
			present[col] = true
		}
	}
	var cols []string
	for _, col := range climate.OutputColumns(climate.Catalog()) {
		if present[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CleanName normalizes a location name for use in file names.
func CleanName(location string) string {
	name := strings.ToLower(location)
	name = strings.ReplaceAll(name, ",", "")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// DailyCSVName builds the daily export file name for a location and year span.
func DailyCSVName(location string, startYear, endYear int) string {
	return fmt.Sprintf("%s_daily_climate_%d_%d.csv", CleanName(location), startYear, endYear)
}

// MonthlyCSVName builds the monthly export file name.
func MonthlyCSVName(location string, startYear, endYear int) string {
	return fmt.Sprintf("%s_monthly_climate_%d_%d.csv", CleanName(location), startYear, endYear)
}

// WorkbookName builds the Excel export file name.
func WorkbookName(location string, startYear, endYear int) string {
	return fmt.Sprintf("%s_climate_data_%d_%d.xlsx", CleanName(location), startYear, endYear)
}
