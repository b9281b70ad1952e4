package charts

import (
	"fmt"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Logic06183/Climate-API/internal/climate"
)

// SaveDailySeries renders one output column as a daily time-series PNG with
// monthly means overlaid, written to outPath.
func SaveDailySeries(series climate.SeriesResult, column, title, outPath string) error {
	daily := make(plotter.XYs, 0, len(series))
	for _, rec := range series {
		v, ok := rec.Values[column]
		if !ok {
			continue
		}
		daily = append(daily, plotter.XY{X: float64(rec.Date.Unix()), Y: v})
	}
	if len(daily) == 0 {
		return fmt.Errorf("charts: no values for column %q", column)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = column
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())

	dailyLine, err := plotter.NewLine(daily)
	if err != nil {
		return fmt.Errorf("daily line: %w", err)
	}
	dailyLine.Color = plotter.DefaultLineStyle.Color
	p.Add(dailyLine)
	p.Legend.Add("daily", dailyLine)

	monthly := make(plotter.XYs, 0)
	for _, m := range climate.AggregateMonthly(series) {
		stats, ok := m.Columns[column]
		if !ok {
			continue
		}
		mid := time.Date(m.Year, m.Month, 15, 0, 0, 0, 0, time.UTC)
		monthly = append(monthly, plotter.XY{X: float64(mid.Unix()), Y: stats.Mean})
	}
	if len(monthly) > 0 {
		monthlyLine, pts, err := plotter.NewLinePoints(monthly)
		if err != nil {
			return fmt.Errorf("monthly line: %w", err)
		}
		monthlyLine.Width = vg.Points(2)
		p.Add(monthlyLine, pts)
		p.Legend.Add("monthly mean", monthlyLine, pts)
	}

	if err := p.Save(10*vg.Inch, 4*vg.Inch, outPath); err != nil {
		return fmt.Errorf("save %s: %w", outPath, err)
	}
	return nil
}
