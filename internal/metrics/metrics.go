// Package metrics provides Prometheus instrumentation for the league engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ContestsRecorded counts contests appended, partitioned by size.
	ContestsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "league_contests_recorded_total",
		Help: "Total number of contests recorded",
	}, []string{"participants"})

	// EntryRejections counts data-entry submissions refused by validation.
	EntryRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "league_entry_rejections_total",
		Help: "Data entry submissions rejected",
	}, []string{"reason"})

	// StoreFailures counts persistence errors by operation.
	StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "league_store_failures_total",
		Help: "Persistence failures by operation",
	}, []string{"op"})

	// MalformedCells counts stored values coerced while decoding rows.
	MalformedCells = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "league_malformed_cells_total",
		Help: "Stored values coerced to a safe default",
	}, []string{"kind"})

	// LedgerRows tracks the row count seen on the most recent load.
	LedgerRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "league_ledger_rows",
		Help: "Rows in the contest table at last load",
	})

	// LoadLatency tracks how long a full table load takes.
	LoadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "league_load_latency_seconds",
		Help:    "Contest table load latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "league_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "league_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "league_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
