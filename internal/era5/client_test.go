package era5

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Logic06183/Climate-API/internal/climate"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Project: "test-project"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresConfig(t *testing.T) {
	if _, err := NewClient(Config{Project: "p"}); err == nil {
		t.Error("expected error without base URL")
	}
	if _, err := NewClient(Config{BaseURL: "http://localhost"}); err == nil {
		t.Error("expected error without project")
	}

	c, err := NewClient(Config{BaseURL: "http://localhost", Project: "p"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Dataset() != DefaultDataset {
		t.Errorf("Dataset = %q, want %q", c.Dataset(), DefaultDataset)
	}
}

func TestQueryRegion_ParsesTable(t *testing.T) {
	const table = `[
		["id","longitude","latitude","time","temperature_2m_max","temperature_2m"],
		["20230101",27.86,-26.27,1672531200000,300.5,295.25],
		["20230102",27.86,-26.27,1672617600000,null,296.0]
	]`

	var gotQuery map[string]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"dataset": r.URL.Query().Get("dataset"),
			"bands":   r.URL.Query().Get("bands"),
			"start":   r.URL.Query().Get("start"),
			"end":     r.URL.Query().Get("end"),
			"scale":   r.URL.Query().Get("scale"),
		}
		w.Write([]byte(table))
	})

	bands := []string{"temperature_2m_max", "temperature_2m"}
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)

	rows, err := c.QueryRegion(context.Background(), bands, climate.Point{Lat: -26.27, Lon: 27.86}, start, end, 1000)
	if err != nil {
		t.Fatalf("QueryRegion: %v", err)
	}

	if gotQuery["dataset"] != DefaultDataset {
		t.Errorf("dataset param = %q, want %q", gotQuery["dataset"], DefaultDataset)
	}
	if gotQuery["bands"] != "temperature_2m_max,temperature_2m" {
		t.Errorf("bands param = %q", gotQuery["bands"])
	}
	if gotQuery["start"] != "2023-01-01" || gotQuery["end"] != "2023-01-03" {
		t.Errorf("date params = %q..%q", gotQuery["start"], gotQuery["end"])
	}
	if gotQuery["scale"] != "1000" {
		t.Errorf("scale param = %q, want 1000", gotQuery["scale"])
	}

	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].TimeMS != 1672531200000 {
		t.Errorf("TimeMS = %d, want 1672531200000", rows[0].TimeMS)
	}
	if v := rows[0].Values["temperature_2m_max"]; v == nil || *v != 300.5 {
		t.Errorf("temperature_2m_max = %v, want 300.5", v)
	}
	if v := rows[1].Values["temperature_2m_max"]; v != nil {
		t.Errorf("null band value parsed as %v, want nil", *v)
	}
	if v := rows[1].Values["temperature_2m"]; v == nil || *v != 296.0 {
		t.Errorf("temperature_2m = %v, want 296.0", v)
	}
}

func TestQueryRegion_EmptyTable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	rows, err := c.QueryRegion(context.Background(), []string{"surface_pressure"}, climate.Point{}, time.Now(), time.Now(), 1000)
	if err != nil {
		t.Fatalf("QueryRegion: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}

func TestQueryRegion_ServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := c.QueryRegion(context.Background(), []string{"surface_pressure"}, climate.Point{}, time.Now(), time.Now(), 1000)
	if err == nil {
		t.Fatal("expected error on 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("err = %v, want status 500 mention", err)
	}
}

func TestQueryRegion_MissingTimeColumn(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[["id","longitude","latitude","surface_pressure"],["x",1.0,2.0,101325.0]]`))
	})

	_, err := c.QueryRegion(context.Background(), []string{"surface_pressure"}, climate.Point{}, time.Now(), time.Now(), 1000)
	if err == nil || !strings.Contains(err.Error(), "time column") {
		t.Errorf("err = %v, want missing time column error", err)
	}
}

func TestQueryRegion_SendsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Project: "p", APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.QueryRegion(context.Background(), nil, climate.Point{}, time.Now(), time.Now(), 1000); err != nil {
		t.Fatalf("QueryRegion: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
}
