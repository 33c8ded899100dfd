// Package httpapi serves the processed weather data over HTTP: aggregate
// views, summary statistics, and extreme-event scans, plus the usual
// health, readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/climatescope/weather-etl/internal/aggregate"
	"github.com/climatescope/weather-etl/internal/domain"
	"github.com/climatescope/weather-etl/internal/observability"
	"github.com/climatescope/weather-etl/internal/stats"
)

// Snapshot is the immutable dataset a Server answers queries from. Handlers
// filter and re-aggregate it per request but never mutate it.
type Snapshot struct {
	Observations   []domain.Observation
	SummaryMetrics []domain.Metric
}

// Server exposes the query API over one loaded snapshot.
type Server struct {
	httpServer *http.Server
	snapshot   *Snapshot
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the query routes plus /healthz,
// /readyz, and /metrics.
func NewServer(addr string, snapshot *Snapshot, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		snapshot: snapshot,
		metrics:  metrics,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/daily", s.handleAggregate("daily", aggregate.Daily))
	mux.HandleFunc("GET /api/monthly", s.handleAggregate("monthly", aggregate.Monthly))
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/extremes", s.handleExtremes)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if len(s.snapshot.Observations) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "snapshot is empty",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// parseFilter reads the country, from, and to query parameters. Dates are
// inclusive YYYY-MM-DD bounds; to covers the whole named day.
func parseFilter(r *http.Request) (aggregate.Filter, error) {
	q := r.URL.Query()
	f := aggregate.Filter{Countries: q["country"]}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, fmt.Errorf("invalid from date %q", v)
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, fmt.Errorf("invalid to date %q", v)
		}
		f.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}

func (s *Server) handleAggregate(endpoint string, group func([]domain.Observation) []aggregate.Row) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			s.metrics.APIRequests.WithLabelValues(endpoint, "bad_request").Inc()
			writeError(w, http.StatusBadRequest, err)
			return
		}

		rows := group(filter.Apply(s.snapshot.Observations))
		if len(rows) == 0 {
			s.metrics.APIRequests.WithLabelValues(endpoint, "empty").Inc()
		} else {
			s.metrics.APIRequests.WithLabelValues(endpoint, "ok").Inc()
		}
		writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.metrics.APIRequests.WithLabelValues("summary", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}

	filtered := filter.Apply(s.snapshot.Observations)
	summaries := make(map[domain.Metric]stats.Summary, len(s.snapshot.SummaryMetrics))
	for _, m := range s.snapshot.SummaryMetrics {
		values := make([]float64, 0, len(filtered))
		for _, o := range filtered {
			if v, ok := o.Value(m); ok {
				values = append(values, v)
			}
		}
		summaries[m] = stats.Describe(values)
	}

	s.metrics.APIRequests.WithLabelValues("summary", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"observations": len(filtered),
		"metrics":      summaries,
	})
}

func (s *Server) handleExtremes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	metric := q.Get("metric")
	if !domain.ValidMetric(metric) {
		s.metrics.APIRequests.WithLabelValues("extremes", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown metric %q", metric))
		return
	}
	op, err := aggregate.ParseOp(q.Get("op"))
	if err != nil {
		s.metrics.APIRequests.WithLabelValues("extremes", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	threshold, err := strconv.ParseFloat(q.Get("threshold"), 64)
	if err != nil {
		s.metrics.APIRequests.WithLabelValues("extremes", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid threshold %q", q.Get("threshold")))
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		s.metrics.APIRequests.WithLabelValues("extremes", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rule := aggregate.Rule{
		Label:     fmt.Sprintf("%s_%s_%s", metric, op, q.Get("threshold")),
		Metric:    domain.Metric(metric),
		Op:        op,
		Threshold: threshold,
	}
	results := aggregate.Detect(filter.Apply(s.snapshot.Observations), []aggregate.Rule{rule})

	s.metrics.APIRequests.WithLabelValues("extremes", "ok").Inc()
	writeJSON(w, http.StatusOK, results[0])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
