// Command accesswindow computes the access windows of one satellite over one
// observer location and prints them as JSON.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/star/accessplan/internal/access"
	"github.com/star/accessplan/internal/propagation"
	"github.com/star/accessplan/internal/report"
	"github.com/star/accessplan/internal/sampling"
	"github.com/star/accessplan/internal/tle"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, time.Now))
}

type options struct {
	lat, lon, alt float64
	tle1, tle2    string
	tleFile       string
	norad         int
	start, end    string
	minElevation  float64
	stepSeconds   int
	output        string
}

func run(args []string, stdout, stderr io.Writer, now func() time.Time) int {
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var opts options
	fs := flag.NewFlagSet("accesswindow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Float64Var(&opts.lat, "lat", 0, "observer latitude in degrees")
	fs.Float64Var(&opts.lon, "lon", 0, "observer longitude in degrees")
	fs.Float64Var(&opts.alt, "alt", 0, "observer altitude in metres")
	fs.StringVar(&opts.tle1, "tle1", "", "first orbital element line")
	fs.StringVar(&opts.tle2, "tle2", "", "second orbital element line")
	fs.StringVar(&opts.tleFile, "tle-file", "", "3-line element file (alternative to -tle1/-tle2)")
	fs.IntVar(&opts.norad, "norad", 0, "catalog number to select from -tle-file (default: first entry)")
	fs.StringVar(&opts.start, "start", "", "window start, ISO-8601 (default: now)")
	fs.StringVar(&opts.end, "end", "", "window end, ISO-8601 (default: start + 24h)")
	fs.Float64Var(&opts.minElevation, "min-elevation", 10, "minimum elevation in degrees")
	fs.IntVar(&opts.stepSeconds, "step", 30, "sample step in seconds")
	fs.StringVar(&opts.output, "output", string(report.Legacy), "output mode: legacy, detailed or events")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if err := execute(opts, stdout, logger, now); err != nil {
		logger.Error("access window computation failed", "error", err)
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func execute(opts options, stdout io.Writer, logger *slog.Logger, now func() time.Time) error {
	mode, err := report.ParseMode(opts.output)
	if err != nil {
		return err
	}
	if opts.lat < -90 || opts.lat > 90 || opts.lon < -180 || opts.lon > 180 {
		return fmt.Errorf("observer location %.4f, %.4f out of range", opts.lat, opts.lon)
	}
	if opts.stepSeconds <= 0 {
		return fmt.Errorf("step must be positive, got %d", opts.stepSeconds)
	}

	elems, err := loadElements(opts, logger)
	if err != nil {
		return err
	}

	start := now().UTC()
	if opts.start != "" {
		if start, err = parseTime(opts.start); err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
	}
	end := start.Add(24 * time.Hour)
	if opts.end != "" {
		if end, err = parseTime(opts.end); err != nil {
			return fmt.Errorf("invalid -end: %w", err)
		}
	}

	model, err := propagation.NewSGP4(elems)
	if err != nil {
		return err
	}

	obs := propagation.Observer{LatDeg: opts.lat, LonDeg: opts.lon, AltM: opts.alt}
	grid := sampling.Grid{Start: start, End: end, Step: time.Duration(opts.stepSeconds) * time.Second}
	samples := sampling.Angles(grid, sampling.Observe(model, obs))
	if failed := len(samples) - sampling.CountValid(samples); failed > 0 {
		logger.Warn("some samples could not be computed", "failed", failed, "total", len(samples))
	}

	windows := access.Detect(samples, opts.minElevation)

	return report.Write(stdout, mode, report.Params{
		Latitude:     opts.lat,
		Longitude:    opts.lon,
		Altitude:     opts.alt,
		Start:        start,
		End:          end,
		MinElevation: opts.minElevation,
		Step:         grid.Step,
	}, windows)
}

func loadElements(opts options, logger *slog.Logger) (tle.Elements, error) {
	if opts.tleFile == "" {
		if opts.tle1 == "" || opts.tle2 == "" {
			return tle.Elements{}, errors.New("-tle1 and -tle2 (or -tle-file) are required")
		}
		return tle.Elements{Line1: opts.tle1, Line2: opts.tle2}, nil
	}

	f, err := os.Open(opts.tleFile)
	if err != nil {
		return tle.Elements{}, err
	}
	defer f.Close()

	entries, err := tle.Parse(f, logger)
	if err != nil {
		return tle.Elements{}, err
	}
	for _, e := range entries {
		if opts.norad == 0 || e.NORADID == opts.norad {
			return e.Elements, nil
		}
	}
	if opts.norad != 0 {
		return tle.Elements{}, fmt.Errorf("catalog number %d not found in %s", opts.norad, opts.tleFile)
	}
	return tle.Elements{}, fmt.Errorf("no element sets in %s", opts.tleFile)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts ISO-8601 timestamps. Values without a zone are UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as ISO-8601", s)
}
