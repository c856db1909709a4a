package store

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/star/accessplan/internal/access"
	"github.com/star/accessplan/internal/metadata"
	"github.com/star/accessplan/internal/metrics"
	"github.com/star/accessplan/internal/timeseries"
)

// Layout selects how windows become time-series points.
type Layout string

const (
	PerWindow Layout = "window" // one access_window point per window
	PerEvent  Layout = "event"  // one access_event point per event
)

// Sink writes windows to the time-series store. Safe for concurrent use.
type Sink struct {
	writer timeseries.Writer
	layout Layout
	logger *slog.Logger

	written atomic.Int64
	failed  atomic.Int64
}

// NewSink creates a sink over w.
func NewSink(w timeseries.Writer, layout Layout, logger *slog.Logger) *Sink {
	if layout == "" {
		layout = PerWindow
	}
	return &Sink{writer: w, layout: layout, logger: logger}
}

// WriteWindows writes every point of windows once. A failed point is logged
// and skipped. It returns the number of failed points.
func (s *Sink) WriteWindows(ctx context.Context, obs metadata.Observer, obj metadata.TrackedObject, windows []access.Window) int {
	var points []timeseries.Point
	for _, w := range windows {
		if s.layout == PerEvent {
			points = append(points, timeseries.EventPoints(obs, obj, w)...)
		} else {
			points = append(points, timeseries.WindowPoint(obs, obj, w))
		}
	}

	var failed int
	for _, p := range points {
		if err := s.writer.Write(ctx, p); err != nil {
			failed++
			metrics.IncWriteFailures(Influx)
			s.logger.Warn("write failed, skipping point",
				"observer_id", obs.ID,
				"object_id", obj.ID,
				"measurement", p.Measurement,
				"time", p.Time,
				"error", err,
			)
			continue
		}
		s.written.Add(1)
	}
	s.failed.Add(int64(failed))
	return failed
}

// Written returns the number of points stored so far.
func (s *Sink) Written() int64 { return s.written.Load() }

// Failed returns the number of points skipped so far.
func (s *Sink) Failed() int64 { return s.failed.Load() }
