package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/Logic06183/Climate-API/internal/api"
	"github.com/Logic06183/Climate-API/internal/charts"
	"github.com/Logic06183/Climate-API/internal/climate"
	"github.com/Logic06183/Climate-API/internal/era5"
	"github.com/Logic06183/Climate-API/internal/export"
	"github.com/Logic06183/Climate-API/internal/geocode"
	"github.com/Logic06183/Climate-API/internal/models"
	"github.com/Logic06183/Climate-API/internal/store"
)

// Globals are flags shared by every command, resolved from the environment
// (and an optional .env file) when not passed explicitly.
type Globals struct {
	SourceURL   string `help:"Base URL of the region time-series endpoint." env:"CLIMATE_SOURCE_URL"`
	Project     string `help:"Cloud project passed to the data source." env:"CLIMATE_PROJECT"`
	APIKey      string `help:"API key for the data source." env:"CLIMATE_API_KEY"`
	GeocoderKey string `help:"Google geocoding API key (Nominatim is used without one)." env:"GEOCODER_API_KEY"`
	Concurrency int    `help:"Concurrent chunk queries." env:"CLIMATE_CONCURRENCY" default:"1"`
}

// newExtractor builds the extraction pipeline, or returns nil when no source
// is configured.
func (g *Globals) newExtractor() (*climate.Extractor, error) {
	if g.SourceURL == "" {
		return nil, nil
	}
	client, err := era5.NewClient(era5.Config{
		BaseURL: g.SourceURL,
		Project: g.Project,
		APIKey:  g.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return climate.NewExtractor(client, climate.Options{Concurrency: g.Concurrency}), nil
}

func (g *Globals) newGeocoder() *geocode.Service {
	if g.GeocoderKey != "" {
		return geocode.NewService(geocode.WithGoogleKey(g.GeocoderKey))
	}
	return geocode.NewService()
}

type ServeCmd struct {
	Port string `help:"HTTP server port." env:"PORT" default:"8080"`
	DB   string `help:"Path to the SQLite database." env:"CLIMATE_DB" default:"data/climate.db"`
}

func (c *ServeCmd) Run(g *Globals) error {
	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")

	extractor, err := g.newExtractor()
	if err != nil {
		return err
	}
	if extractor == nil {
		log.Println("no CLIMATE_SOURCE_URL configured, extraction endpoints disabled")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(st, extractor, g.newGeocoder(), c.Port)
	return server.Run(ctx)
}

type ExtractCmd struct {
	Name      string   `help:"Location name used in output file names." required:""`
	Lat       float64  `help:"Latitude in decimal degrees." required:""`
	Lon       float64  `help:"Longitude in decimal degrees." required:""`
	Start     string   `help:"Start date (YYYY-MM-DD)." required:""`
	End       string   `help:"End date (YYYY-MM-DD)." required:""`
	Variables []string `help:"Variables to extract." default:"temperature"`
	ChunkDays int      `help:"Days per remote query chunk." default:"90"`
	BufferKM  float64  `help:"Buffer radius in kilometers." default:"10"`
	OutDir    string   `help:"Directory for CSV/Excel/PNG output." default:"." type:"path"`
	Chart     string   `help:"Output column to render as a PNG chart, empty to skip." default:"tmean_celsius"`
	DB        string   `help:"Optional SQLite database to record the run in." env:"CLIMATE_DB"`
}

func (c *ExtractCmd) Run(g *Globals) error {
	extractor, err := g.newExtractor()
	if err != nil {
		return err
	}
	if extractor == nil {
		return fmt.Errorf("CLIMATE_SOURCE_URL required for extraction")
	}

	start, err := time.Parse("2006-01-02", c.Start)
	if err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.End)
	if err != nil {
		return fmt.Errorf("parse end date: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("extracting %s (%.4f, %.4f) %s to %s", c.Name, c.Lat, c.Lon, c.Start, c.End)
	series, warnings, err := extractor.Extract(ctx, climate.Point{Lat: c.Lat, Lon: c.Lon}, start, end, c.Variables, c.ChunkDays)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Printf("warning: chunk %s to %s: %s", w.ChunkStart.Format("2006-01-02"), w.ChunkEnd.Format("2006-01-02"), w.Message)
	}
	if len(series) == 0 {
		return fmt.Errorf("no data extracted for %s", c.Name)
	}
	log.Printf("extracted %d daily records", len(series))

	monthly := climate.AggregateMonthly(series)
	startYear, endYear := start.Year(), end.Year()

	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := writeFile(filepath.Join(c.OutDir, export.DailyCSVName(c.Name, startYear, endYear)), func(f *os.File) error {
		return export.WriteDailyCSV(f, series)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(c.OutDir, export.MonthlyCSVName(c.Name, startYear, endYear)), func(f *os.File) error {
		return export.WriteMonthlyCSV(f, monthly)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(c.OutDir, export.WorkbookName(c.Name, startYear, endYear)), func(f *os.File) error {
		return export.WriteWorkbook(f, export.Metadata{LocationName: c.Name, Variables: c.Variables}, series, monthly)
	}); err != nil {
		return err
	}

	if c.Chart != "" {
		chartPath := filepath.Join(c.OutDir, fmt.Sprintf("%s_%s_%d_%d.png", export.CleanName(c.Name), c.Chart, startYear, endYear))
		if err := charts.SaveDailySeries(series, c.Chart, fmt.Sprintf("%s %s", c.Name, c.Chart), chartPath); err != nil {
			log.Printf("chart skipped: %v", err)
		} else {
			log.Printf("wrote %s", chartPath)
		}
	}

	if c.DB != "" {
		if err := c.record(g, series, warnings, start, end); err != nil {
			return err
		}
	}
	return nil
}

// record stores the run so the serve command can list and re-export it.
func (c *ExtractCmd) record(g *Globals, series climate.SeriesResult, warnings []climate.Warning, start, end time.Time) error {
	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	warningsJSON := ""
	if len(warnings) > 0 {
		b, err := json.Marshal(warnings)
		if err != nil {
			return fmt.Errorf("marshal warnings: %w", err)
		}
		warningsJSON = string(b)
	}

	id, err := st.SaveExtraction(models.Extraction{
		LocationName: c.Name,
		Latitude:     c.Lat,
		Longitude:    c.Lon,
		BufferKM:     c.BufferKM,
		StartDate:    start,
		EndDate:      end,
		Variables:    strings.Join(c.Variables, ","),
		WarningsJSON: warningsJSON,
	}, series)
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	log.Printf("recorded extraction %d in %s", id, c.DB)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	log.Printf("wrote %s", path)
	return nil
}

var cli struct {
	Globals

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API server."`
	Extract ExtractCmd `cmd:"" help:"Extract a daily climate series to CSV, Excel and PNG files."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("climate-api"),
		kong.Description("Daily climate data extraction service backed by ERA5-Land."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		log.Fatalf("%s: %v", ctx.Command(), err)
	}
}
