// Package report encodes detected windows in the output shapes of the
// single-pair command: legacy start/end pairs, a detailed per-window
// document, or a flat event list ready for time-series ingestion.
package report

import (
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"

	"github.com/star/accessplan/internal/access"
)

// Mode selects an output encoding.
type Mode string

const (
	Legacy   Mode = "legacy"
	Detailed Mode = "detailed"
	Events   Mode = "events"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Legacy, Detailed, Events:
		return m, nil
	}
	return "", fmt.Errorf("unknown output mode %q (want legacy, detailed or events)", s)
}

// Pair is one legacy [start, end] entry.
type Pair [2]string

// WindowDoc is one window in the detailed document.
type WindowDoc struct {
	Start           time.Time      `json:"start"`
	End             time.Time      `json:"end"`
	Culmination     time.Time      `json:"culmination"`
	DurationMinutes float64        `json:"duration_minutes"`
	MaxElevation    float64        `json:"max_elevation"`
	Events          []access.Event `json:"events"`
}

// Document is the detailed output.
type Document struct {
	Latitude     float64     `json:"latitude"`
	Longitude    float64     `json:"longitude"`
	Altitude     float64     `json:"altitude"`
	Start        time.Time   `json:"start"`
	End          time.Time   `json:"end"`
	MinElevation float64     `json:"min_elevation"`
	StepSeconds  int         `json:"step_seconds"`
	Count        int         `json:"count"`
	Windows      []WindowDoc `json:"windows"`
}

// FlatEvent is one entry of the events output.
type FlatEvent struct {
	WindowIndex int `json:"window_index"`
	access.Event
}

// Params describes the query that produced the windows.
type Params struct {
	Latitude     float64
	Longitude    float64
	Altitude     float64
	Start        time.Time
	End          time.Time
	MinElevation float64
	Step         time.Duration
}

const legacyLayout = "2006-01-02T15:04:05"

// Pairs returns the legacy representation: naive UTC timestamps without zone.
func Pairs(windows []access.Window) []Pair {
	out := make([]Pair, 0, len(windows))
	for _, w := range windows {
		out = append(out, Pair{
			w.Start.UTC().Format(legacyLayout),
			w.End.UTC().Format(legacyLayout),
		})
	}
	return out
}

// Detail builds the detailed document.
func Detail(p Params, windows []access.Window) Document {
	doc := Document{
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		Altitude:     p.Altitude,
		Start:        p.Start.UTC(),
		End:          p.End.UTC(),
		MinElevation: p.MinElevation,
		StepSeconds:  int(p.Step / time.Second),
		Count:        len(windows),
		Windows:      make([]WindowDoc, 0, len(windows)),
	}
	for _, w := range windows {
		doc.Windows = append(doc.Windows, WindowDoc{
			Start:           w.Start.UTC(),
			End:             w.End.UTC(),
			Culmination:     w.Culmination.UTC(),
			DurationMinutes: w.DurationMinutes(),
			MaxElevation:    w.MaxElevation,
			Events:          w.Events,
		})
	}
	return doc
}

// Flatten lists every event of every window in chronological order.
func Flatten(windows []access.Window) []FlatEvent {
	out := make([]FlatEvent, 0, len(windows)*3)
	for i, w := range windows {
		for _, ev := range w.Events {
			ev.Time = ev.Time.UTC()
			out = append(out, FlatEvent{WindowIndex: i, Event: ev})
		}
	}
	return out
}

// Write encodes windows to w in the given mode.
func Write(w io.Writer, mode Mode, p Params, windows []access.Window) error {
	var v any
	switch mode {
	case Legacy:
		v = Pairs(windows)
	case Detailed:
		v = Detail(p, windows)
	case Events:
		v = Flatten(windows)
	default:
		return fmt.Errorf("unknown output mode %q", mode)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s output: %w", mode, err)
	}
	return nil
}
