// Package access finds visibility windows in a sampled elevation signal and
// summarises each one as start, culmination and end events.
//
// Boundaries are reported at sample resolution: a window starts at the first
// sample at or above the threshold and ends at the last one, so each edge can
// be up to one step from the true crossing.
package access

import (
	"time"

	"github.com/star/accessplan/internal/sampling"
)

// EventKind names one of the three events of a window.
type EventKind string

const (
	AccessStart EventKind = "access_start"
	Culmination EventKind = "culmination"
	AccessEnd   EventKind = "access_end"
)

// Event is one point of interest inside a window. DurationMinutes and
// MaxElevation are only set on the access_start event.
type Event struct {
	Time            time.Time `json:"time"`
	Kind            EventKind `json:"event_type"`
	Elevation       float64   `json:"elevation"`
	Azimuth         float64   `json:"azimuth"`
	DurationMinutes *float64  `json:"duration_minutes,omitempty"`
	MaxElevation    *float64  `json:"max_elevation,omitempty"`
}

// Window is a maximal run of samples at or above the elevation threshold.
type Window struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Culmination  time.Time `json:"culmination"`
	MaxElevation float64   `json:"max_elevation"`
	Events       []Event   `json:"events"`
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// DurationMinutes returns the window length in minutes.
func (w Window) DurationMinutes() float64 {
	return w.Duration().Minutes()
}

type scanState int

const (
	outside scanState = iota
	inside
)

// Detect scans samples in order and returns every window whose elevation
// stays at or above threshold. Samples without an elevation count as below.
// The input is not modified.
func Detect(samples []sampling.Sample, threshold float64) []Window {
	var (
		windows []Window
		state   = outside
		first   int
	)

	for i, s := range samples {
		above := s.Valid() && *s.Elevation >= threshold

		switch {
		case state == outside && above:
			state = inside
			first = i
		case state == inside && !above:
			state = outside
			windows = appendWindow(windows, samples[first:i])
		}
	}

	if state == inside {
		windows = appendWindow(windows, samples[first:])
	}
	return windows
}

func appendWindow(windows []Window, span []sampling.Sample) []Window {
	if w, ok := Extract(span); ok {
		windows = append(windows, w)
	}
	return windows
}

// Extract summarises one closed window covering span inclusively.
// On equal elevations the earliest sample is the culmination.
// It reports false when span is empty or holds a sample without an elevation.
func Extract(span []sampling.Sample) (Window, bool) {
	if len(span) == 0 {
		return Window{}, false
	}
	for _, s := range span {
		if !s.Valid() {
			return Window{}, false
		}
	}

	start := span[0]
	end := span[len(span)-1]

	peak := 0
	for i := 1; i < len(span); i++ {
		if *span[i].Elevation > *span[peak].Elevation {
			peak = i
		}
	}
	culm := span[peak]

	maxEl := *culm.Elevation
	duration := end.Time.Sub(start.Time).Minutes()

	startEvent := eventAt(start, AccessStart)
	startEvent.DurationMinutes = &duration
	startEvent.MaxElevation = &maxEl

	return Window{
		Start:        start.Time,
		End:          end.Time,
		Culmination:  culm.Time,
		MaxElevation: maxEl,
		Events: []Event{
			startEvent,
			eventAt(culm, Culmination),
			eventAt(end, AccessEnd),
		},
	}, true
}

func eventAt(s sampling.Sample, kind EventKind) Event {
	ev := Event{Time: s.Time, Kind: kind, Elevation: *s.Elevation}
	if s.Azimuth != nil {
		ev.Azimuth = *s.Azimuth
	}
	return ev
}
