package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegionQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climate_api_region_queries_total",
			Help: "Total region time-series queries issued to the climate data source",
		},
		[]string{"dataset", "status"},
	)

	RegionQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "climate_api_region_query_latency_seconds",
			Help:    "Region query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dataset"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climate_api_extractions_total",
			Help: "Total extraction runs by outcome",
		},
		[]string{"status"},
	)

	ChunksSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "climate_api_chunks_skipped_total",
			Help: "Total chunks skipped due to query failures",
		},
	)

	GeocodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climate_api_geocode_requests_total",
			Help: "Total geocoding requests by backend and status",
		},
		[]string{"backend", "status"},
	)
)
