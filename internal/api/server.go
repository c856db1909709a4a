// Package api serves the operations endpoints of a running batch: liveness,
// readiness and Prometheus metrics.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/star/accessplan/internal/health"
	"github.com/star/accessplan/internal/metrics"
)

// Server is the operations listener.
type Server struct {
	httpServer *http.Server
}

// NewServer wires /healthz, /readyz and /metrics behind the request log and
// the HTTP metrics middleware.
func NewServer(addr string, logger *slog.Logger, readiness *health.Readiness) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", readiness.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	// metrics -> request log -> mux
	var handler http.Handler = mux
	handler = requestLog(logger, readiness)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// HTTPServer exposes the server for Shutdown.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// scrapeLevel picks the log level for one ops request. Successful scrapes
// are routine; a 503 from /readyz while stores connect is expected too.
func scrapeLevel(status int, ready bool) slog.Level {
	switch {
	case status < 400:
		return slog.LevelDebug
	case status == http.StatusServiceUnavailable && !ready:
		return slog.LevelDebug
	case status >= 500:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func requestLog(logger *slog.Logger, readiness *health.Readiness) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)

			ready := readiness.Ready()
			logger.Log(r.Context(), scrapeLevel(sr.status, ready), "ops request",
				"path", r.URL.Path,
				"status", sr.status,
				"stores_ready", ready,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
