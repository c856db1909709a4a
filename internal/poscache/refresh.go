package poscache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/star/accessplan/internal/metadata"
	"github.com/star/accessplan/internal/metrics"
	"github.com/star/accessplan/internal/propagation"
	"github.com/star/accessplan/internal/sampling"
)

// Summary describes one refresh run.
type Summary struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	Processed       int       `json:"satellites_processed"`
	Failed          int       `json:"satellites_failed"`
	TotalPositions  int       `json:"total_positions_calculated"`
	Errors          []string  `json:"errors"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Series samples the sub-satellite point over [start, start+horizon]. Failed
// grid points stay in the series with nil coordinates.
func Series(m propagation.Model, start time.Time, horizon, step time.Duration) []Position {
	grid := sampling.Grid{Start: start, End: start.Add(horizon), Step: step}
	return sampling.Collect(grid,
		func(t time.Time) (Position, error) {
			sp, err := m.SubPoint(t)
			if err != nil {
				return Position{}, err
			}
			return Position{
				Timestamp:     t.UTC(),
				Latitude:      &sp.LatDeg,
				Longitude:     &sp.LonDeg,
				AltitudeKm:    &sp.AltitudeKm,
				UnixTimestamp: t.Unix(),
			}, nil
		},
		func(t time.Time, err error) Position {
			return Position{Timestamp: t.UTC(), UnixTimestamp: t.Unix(), Error: err.Error()}
		})
}

// Refresh recomputes and replaces the records of every object. One object
// failing never stops the others. The summary is also stored under the
// status key.
func (c *Cache) Refresh(ctx context.Context, objects []metadata.TrackedObject) Summary {
	start := c.now().UTC()
	summary := Summary{RunID: uuid.NewString(), StartedAt: start, Errors: []string{}}
	errs := make([]string, len(objects))

	c.logger.Info("starting position refresh", "run_id", summary.RunID, "objects", len(objects))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)

	for i, obj := range objects {
		i, obj := i, obj
		g.Go(func() error {
			n, err := c.refreshOne(gctx, obj, start)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				errs[i] = fmt.Sprintf("failed to process satellite %s: %v", obj.Name, err)
				metrics.IncPositionObjects("failed")
				c.logger.Warn("position refresh failed", "satellite_id", obj.ID, "name", obj.Name, "error", err)
				return nil
			}
			summary.Processed++
			summary.TotalPositions += n
			metrics.IncPositionObjects("succeeded")
			return nil
		})
	}
	g.Wait()

	for _, e := range errs {
		if e != "" {
			summary.Errors = append(summary.Errors, e)
		}
	}

	summary.CompletedAt = c.now().UTC()
	elapsed := summary.CompletedAt.Sub(start)
	summary.DurationSeconds = elapsed.Seconds()
	metrics.ObserveRun("positions", elapsed)

	if err := c.putJSON(ctx, statusKey, summary, c.config.StatusTTL); err != nil {
		metrics.IncWriteFailures("cache")
		c.logger.Warn("failed to store refresh status", "error", err)
	}

	c.logger.Info("position refresh completed",
		"run_id", summary.RunID,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"total_positions", summary.TotalPositions,
	)
	return summary
}

func (c *Cache) refreshOne(ctx context.Context, obj metadata.TrackedObject, start time.Time) (int, error) {
	m, err := c.factory(obj.Elements)
	if err != nil {
		return 0, err
	}
	series := Series(m, start, c.config.Horizon, c.config.Step)
	c.logger.Debug("calculated positions", "satellite_id", obj.ID, "count", len(series))

	if err := c.Put(ctx, obj.ID, obj.Name, series); err != nil {
		metrics.IncWriteFailures("cache")
		return 0, err
	}
	return len(series), nil
}
