package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL
// pipeline and the dashboard API.
type Metrics struct {
	RowsRead        prometheus.Counter
	RowsCleaned     prometheus.Counter
	RowsDropped     *prometheus.CounterVec // labels: reason={bad_timestamp,duplicate,out_of_range}
	ValuesClipped   prometheus.Counter
	ValuesImputed   prometheus.Counter
	PipelineRunning prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage={extract,clean,aggregate,load}

	ExportedObservations prometheus.Counter

	APIRequests *prometheus.CounterVec // labels: endpoint, outcome={ok,empty,bad_request}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsRead,
		m.RowsCleaned,
		m.RowsDropped,
		m.ValuesClipped,
		m.ValuesImputed,
		m.PipelineRunning,
		m.StageDuration,
		m.ExportedObservations,
		m.APIRequests,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "rows_read_total",
			Help:      "Total raw rows read from the input CSV.",
		}),
		RowsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "rows_cleaned_total",
			Help:      "Total rows surviving the cleaning stage.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows dropped during cleaning, by reason.",
		}, []string{"reason"}),
		ValuesClipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "values_clipped_total",
			Help:      "Out-of-range values clipped to a bound.",
		}),
		ValuesImputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "values_imputed_total",
			Help:      "Missing values filled with the column median or mode.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "pipeline_running",
			Help:      "1 while a batch run is active, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		ExportedObservations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "exported_observations_total",
			Help:      "Cleaned observations published to the export topic.",
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "api_requests_total",
			Help:      "Dashboard API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}
}
