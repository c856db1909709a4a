package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessplan_http_requests_total",
			Help: "Total number of HTTP requests to the operations listener.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accessplan_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	pairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessplan_pairs_total",
			Help: "Observer/object pairs processed, by outcome.",
		},
		[]string{"outcome"},
	)

	windowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accessplan_windows_total",
			Help: "Access windows detected.",
		},
	)

	sampleFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accessplan_sample_failures_total",
			Help: "Grid points the propagation model could not evaluate.",
		},
	)

	writeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessplan_write_failures_total",
			Help: "Store writes that failed and were skipped.",
		},
		[]string{"store"},
	)

	connectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessplan_connect_attempts_total",
			Help: "Store connection attempts.",
		},
		[]string{"store"},
	)

	positionObjectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessplan_position_objects_total",
			Help: "Tracked objects processed by the position cache refresh, by outcome.",
		},
		[]string{"outcome"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessplan_cache_lookups_total",
			Help: "Position cache lookups, by result.",
		},
		[]string{"result"},
	)

	runDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accessplan_run_duration_seconds",
			Help:    "Duration of batch runs in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"run"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(pairsTotal)
	prometheus.MustRegister(windowsTotal)
	prometheus.MustRegister(sampleFailuresTotal)
	prometheus.MustRegister(writeFailuresTotal)
	prometheus.MustRegister(connectAttemptsTotal)
	prometheus.MustRegister(positionObjectsTotal)
	prometheus.MustRegister(cacheLookupsTotal)
	prometheus.MustRegister(runDurationSeconds)
}

// IncPairs counts one processed pair. outcome is "succeeded" or "failed".
func IncPairs(outcome string) { pairsTotal.WithLabelValues(outcome).Inc() }

// AddWindows counts detected windows.
func AddWindows(n int) { windowsTotal.Add(float64(n)) }

// AddSampleFailures counts grid points without a value.
func AddSampleFailures(n int) { sampleFailuresTotal.Add(float64(n)) }

// IncWriteFailures counts one skipped write.
func IncWriteFailures(store string) { writeFailuresTotal.WithLabelValues(store).Inc() }

// IncConnectAttempts counts one connection attempt.
func IncConnectAttempts(store string) { connectAttemptsTotal.WithLabelValues(store).Inc() }

// IncPositionObjects counts one object handled by a position refresh.
func IncPositionObjects(outcome string) { positionObjectsTotal.WithLabelValues(outcome).Inc() }

// IncCacheHits and IncCacheMisses count position cache lookups.
func IncCacheHits()   { cacheLookupsTotal.WithLabelValues("hit").Inc() }
func IncCacheMisses() { cacheLookupsTotal.WithLabelValues("miss").Inc() }

// ObserveRun records how long a run took. run is "sweep" or "positions".
func ObserveRun(run string, d time.Duration) {
	runDurationSeconds.WithLabelValues(run).Observe(d.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// normalizeRoute maps a request path to a bounded label set.
func normalizeRoute(path string) string {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/":
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
