// Package timeseries builds and writes tagged access points and reads stored
// events back as windows.
package timeseries

import (
	"context"
	"time"

	"github.com/star/accessplan/internal/access"
	"github.com/star/accessplan/internal/metadata"
)

const (
	WindowMeasurement = "access_window"
	EventMeasurement  = "access_event"
)

// Point is one tagged record ready for the store.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// Writer persists points. Each call is a single attempt.
type Writer interface {
	Write(ctx context.Context, p Point) error
}

func setTag(tags map[string]string, k, v string) {
	if v != "" {
		tags[k] = v
	}
}

// WindowPoint builds the per-window record, stamped at the window start.
func WindowPoint(obs metadata.Observer, obj metadata.TrackedObject, w access.Window) Point {
	tags := make(map[string]string, 6)
	setTag(tags, "ground_station_id", obs.ID)
	setTag(tags, "ground_station_name", obs.Name)
	setTag(tags, "location_type", string(obs.Kind))
	setTag(tags, "satellite_id", obj.ID)
	setTag(tags, "satellite_name", obj.Name)
	setTag(tags, "satellite_mission", obj.Mission)

	return Point{
		Measurement: WindowMeasurement,
		Tags:        tags,
		Fields: map[string]any{
			"duration_minutes":   w.DurationMinutes(),
			"start_time":         w.Start.UTC().Format(time.RFC3339),
			"end_time":           w.End.UTC().Format(time.RFC3339),
			"ground_station_lat": obs.Lat,
			"ground_station_lon": obs.Lon,
			"ground_station_alt": obs.Alt,
		},
		Time: w.Start,
	}
}

// EventPoints builds one record per window event, each stamped at its own time.
// Window summary and observer position ride on the access_start record.
func EventPoints(obs metadata.Observer, obj metadata.TrackedObject, w access.Window) []Point {
	out := make([]Point, 0, len(w.Events))
	for _, ev := range w.Events {
		tags := make(map[string]string, 7)
		setTag(tags, "satellite_id", obj.ID)
		setTag(tags, "satellite_name", obj.Name)
		setTag(tags, "satellite_mission", obj.Mission)
		setTag(tags, "location_id", obs.ID)
		setTag(tags, "location_name", obs.Name)
		setTag(tags, "location_type", string(obs.Kind))
		setTag(tags, "event_type", string(ev.Kind))

		fields := map[string]any{
			"elevation": ev.Elevation,
			"azimuth":   ev.Azimuth,
		}
		if ev.DurationMinutes != nil {
			fields["window_duration_minutes"] = *ev.DurationMinutes
		}
		if ev.MaxElevation != nil {
			fields["max_elevation"] = *ev.MaxElevation
		}
		if ev.Kind == access.AccessStart {
			fields["location_lat"] = obs.Lat
			fields["location_lon"] = obs.Lon
			fields["location_alt"] = obs.Alt
		}

		out = append(out, Point{
			Measurement: EventMeasurement,
			Tags:        tags,
			Fields:      fields,
			Time:        ev.Time,
		})
	}
	return out
}
