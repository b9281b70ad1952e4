package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Logic06183/Climate-API/internal/climate"
)

// Metadata describes an extraction run for the workbook's Metadata sheet.
type Metadata struct {
	LocationName string
	Variables    []string
}

// WriteWorkbook writes an Excel workbook with Daily_Data, Monthly_Averages
// and Metadata sheets, mirroring the CSV exports.
func WriteWorkbook(w io.Writer, meta Metadata, series climate.SeriesResult, monthly []climate.MonthlyStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeDailySheet(f, series); err != nil {
		return err
	}
	if err := writeMonthlySheet(f, monthly); err != nil {
		return err
	}
	if err := writeMetadataSheet(f, meta, series, monthly); err != nil {
		return err
	}

	// Drop the default sheet created by NewFile.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeDailySheet(f *excelize.File, series climate.SeriesResult) error {
	const sheet = "Daily_Data"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}

	columns := series.Columns()
	if err := setRow(f, sheet, 1, append([]interface{}{"date"}, toAny(columns)...)); err != nil {
		return err
	}

	for i, rec := range series {
		row := make([]interface{}, 0, len(columns)+1)
		row = append(row, rec.Date.Format("2006-01-02"))
		for _, col := range columns {
			if v, ok := rec.Values[col]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMonthlySheet(f *excelize.File, monthly []climate.MonthlyStats) error {
	const sheet = "Monthly_Averages"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}

	columns := monthlyColumns(monthly)
	header := []interface{}{"month"}
	for _, col := range columns {
		header = append(header, col+"_mean", col+"_std", col+"_min", col+"_max", col+"_count")
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, m := range monthly {
		row := []interface{}{m.Label()}
		for _, col := range columns {
			stats, ok := m.Columns[col]
			if !ok {
				row = append(row, nil, nil, nil, nil, 0)
				continue
			}
			var std interface{}
			if stats.Std != nil {
				std = *stats.Std
			}
			row = append(row, stats.Mean, std, stats.Min, stats.Max, stats.Count)
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMetadataSheet(f *excelize.File, meta Metadata, series climate.SeriesResult, monthly []climate.MonthlyStats) error {
	const sheet = "Metadata"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}

	dateRange := ""
	if len(series) > 0 {
		dateRange = fmt.Sprintf("%s to %s",
			series[0].Date.Format("2006-01-02"),
			series[len(series)-1].Date.Format("2006-01-02"))
	}

	rows := [][]interface{}{
		{"Parameter", "Value"},
		{"Location", meta.LocationName},
		{"Date Range", dateRange},
		{"Daily Records", len(series)},
		{"Monthly Records", len(monthly)},
		{"Variables", fmt.Sprintf("%v", meta.Variables)},
		{"Data Source", "ERA5-Land (ECMWF)"},
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set row %d on %s: %w", row, sheet, err)
	}
	return nil
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
