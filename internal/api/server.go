package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Logic06183/Climate-API/internal/climate"
	"github.com/Logic06183/Climate-API/internal/geocode"
	"github.com/Logic06183/Climate-API/internal/store"
)

// Server exposes the extraction pipeline over HTTP. The extractor may be nil
// when no remote source is configured; extraction endpoints then return 503
// while stored runs stay servable.
type Server struct {
	store     *store.Store
	extractor *climate.Extractor
	geocoder  *geocode.Service
	port      string
	validate  *validator.Validate
}

func NewServer(st *store.Store, extractor *climate.Extractor, geocoder *geocode.Service, port string) *Server {
	return &Server{
		store:     st,
		extractor: extractor,
		geocoder:  geocoder,
		port:      port,
		validate:  validator.New(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/variables", s.handleVariables)
	mux.HandleFunc("GET /api/presets", s.handlePresets)
	mux.HandleFunc("GET /api/geocode", s.handleGeocode)
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.HandleFunc("GET /api/extractions", s.handleListExtractions)
	mux.HandleFunc("GET /api/extractions/{id}/daily.csv", s.handleDailyCSV)
	mux.HandleFunc("GET /api/extractions/{id}/monthly.csv", s.handleMonthlyCSV)
	mux.HandleFunc("GET /api/extractions/{id}/data.xlsx", s.handleWorkbook)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"source_configured": s.extractor != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
