// Package sampling builds uniform time grids and evaluates an external
// position function at every grid point.
//
// A failed evaluation never aborts the scan: the grid point is kept with
// empty value fields and the failure reason, so spacing stays uniform.
package sampling

import (
	"errors"
	"fmt"
	"time"

	"github.com/star/accessplan/internal/propagation"
)

// ErrInvalidStep is returned for a non-positive grid step.
var ErrInvalidStep = errors.New("sampling: step must be positive")

// Grid describes an inclusive uniform time grid [Start, End].
type Grid struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// Validate checks that the grid can be enumerated.
func (g Grid) Validate() error {
	if g.Step <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidStep, g.Step)
	}
	return nil
}

// Len returns the number of grid points. A grid whose start is after its end is empty.
func (g Grid) Len() int {
	if g.Step <= 0 || g.Start.After(g.End) {
		return 0
	}
	return int(g.End.Sub(g.Start)/g.Step) + 1
}

// Times enumerates Start, Start+Step, ... up to and including the last point <= End.
func (g Grid) Times() []time.Time {
	n := g.Len()
	times := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		times = append(times, g.Start.Add(time.Duration(i)*g.Step))
	}
	return times
}

// Collect evaluates probe at every grid point. When probe fails, failed builds
// the placeholder kept for that point.
func Collect[T any](g Grid, probe func(time.Time) (T, error), failed func(time.Time, error) T) []T {
	times := g.Times()
	out := make([]T, 0, len(times))
	for _, t := range times {
		v, err := probe(t)
		if err != nil {
			out = append(out, failed(t, err))
			continue
		}
		out = append(out, v)
	}
	return out
}

// Sample is one angular observation. Nil value fields mean the propagation
// collaborator failed for this instant; Error then carries the reason.
type Sample struct {
	Time      time.Time `json:"time"`
	Elevation *float64  `json:"elevation"`
	Azimuth   *float64  `json:"azimuth"`
	Range     *float64  `json:"range_km"`
	Error     string    `json:"error,omitempty"`
}

// Valid reports whether the sample carries an elevation.
func (s Sample) Valid() bool {
	return s.Elevation != nil
}

// At builds a populated sample.
func At(t time.Time, elevation, azimuth, rangeKm float64) Sample {
	return Sample{Time: t, Elevation: &elevation, Azimuth: &azimuth, Range: &rangeKm}
}

// Failed builds a sample for a grid point the collaborator could not evaluate.
func Failed(t time.Time, err error) Sample {
	return Sample{Time: t, Error: err.Error()}
}

// LookFunc returns look angles at a time. It is the propagation collaborator
// bound to one observer and one tracked object.
type LookFunc func(t time.Time) (propagation.LookAngles, error)

// Observe builds a LookFunc from a model and observer.
func Observe(m propagation.Model, obs propagation.Observer) LookFunc {
	return func(t time.Time) (propagation.LookAngles, error) {
		return m.LookAngles(obs, t)
	}
}

// Angles samples look angles over the grid.
func Angles(g Grid, look LookFunc) []Sample {
	return Collect(g, func(t time.Time) (Sample, error) {
		la, err := look(t)
		if err != nil {
			return Sample{}, err
		}
		return At(t, la.ElevationDeg, la.AzimuthDeg, la.RangeKm), nil
	}, Failed)
}

// CountValid returns the number of samples with a value.
func CountValid(samples []Sample) int {
	var n int
	for _, s := range samples {
		if s.Valid() {
			n++
		}
	}
	return n
}
