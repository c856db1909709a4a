package timeseries

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/star/accessplan/internal/access"
	"github.com/star/accessplan/internal/metadata"
	"github.com/star/accessplan/internal/sampling"
)

var (
	t0      = time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)
	station = metadata.Observer{ID: "3", Name: "Svalbard", Kind: metadata.GroundStation, Lat: 78.23, Lon: 15.41, Alt: 500}
	iss     = metadata.TrackedObject{ID: "25544", Name: "ISS", Mission: "crew"}
)

func exampleWindow(t *testing.T) access.Window {
	t.Helper()
	elevs := []float64{5, 12, 20, 15, 8}
	samples := make([]sampling.Sample, len(elevs))
	for i, el := range elevs {
		samples[i] = sampling.At(t0.Add(time.Duration(i)*30*time.Second), el, float64(100+i), 800)
	}
	ws := access.Detect(samples, 10)
	if len(ws) != 1 {
		t.Fatalf("setup: got %d windows", len(ws))
	}
	return ws[0]
}

func TestWindowPoint(t *testing.T) {
	p := WindowPoint(station, iss, exampleWindow(t))

	if p.Measurement != WindowMeasurement {
		t.Errorf("measurement = %s", p.Measurement)
	}
	if !p.Time.Equal(t0.Add(30 * time.Second)) {
		t.Errorf("time = %v, want window start", p.Time)
	}
	wantTags := map[string]string{
		"ground_station_id":   "3",
		"ground_station_name": "Svalbard",
		"location_type":       "ground_station",
		"satellite_id":        "25544",
		"satellite_name":      "ISS",
		"satellite_mission":   "crew",
	}
	for k, v := range wantTags {
		if p.Tags[k] != v {
			t.Errorf("tag %s = %q, want %q", k, p.Tags[k], v)
		}
	}
	if p.Fields["duration_minutes"] != 1.0 {
		t.Errorf("duration_minutes = %v", p.Fields["duration_minutes"])
	}
	if p.Fields["start_time"] != "2025-02-14T12:00:30Z" || p.Fields["end_time"] != "2025-02-14T12:01:30Z" {
		t.Errorf("start/end = %v / %v", p.Fields["start_time"], p.Fields["end_time"])
	}
	if p.Fields["ground_station_alt"] != 500.0 {
		t.Errorf("ground_station_alt = %v", p.Fields["ground_station_alt"])
	}
}

func TestWindowPointOmitsEmptyTags(t *testing.T) {
	obj := iss
	obj.Mission = ""
	p := WindowPoint(station, obj, exampleWindow(t))
	if _, ok := p.Tags["satellite_mission"]; ok {
		t.Error("empty mission should not produce a tag")
	}
}

func TestWindowPointTargetSharingID(t *testing.T) {
	target := metadata.Observer{ID: station.ID, Name: "Etna", Kind: metadata.Target, Lat: 37.75, Lon: 14.99}
	gs := WindowPoint(station, iss, exampleWindow(t))
	tp := WindowPoint(target, iss, exampleWindow(t))

	if gs.Tags["ground_station_id"] != tp.Tags["ground_station_id"] {
		t.Fatalf("setup: ids differ")
	}
	if tp.Tags["location_type"] != "target" || gs.Tags["location_type"] == tp.Tags["location_type"] {
		t.Errorf("location_type = %q / %q", gs.Tags["location_type"], tp.Tags["location_type"])
	}
}

func TestEventPoints(t *testing.T) {
	pts := EventPoints(station, iss, exampleWindow(t))
	if len(pts) != 3 {
		t.Fatalf("got %d points, want 3", len(pts))
	}

	kinds := []string{"access_start", "culmination", "access_end"}
	for i, p := range pts {
		if p.Measurement != EventMeasurement {
			t.Errorf("point %d measurement = %s", i, p.Measurement)
		}
		if p.Tags["event_type"] != kinds[i] {
			t.Errorf("point %d event_type = %s", i, p.Tags["event_type"])
		}
		if p.Tags["location_type"] != "ground_station" {
			t.Errorf("point %d location_type = %s", i, p.Tags["location_type"])
		}
	}
	if !pts[1].Time.Equal(t0.Add(60 * time.Second)) {
		t.Errorf("culmination time = %v", pts[1].Time)
	}

	start := pts[0].Fields
	if start["window_duration_minutes"] != 1.0 || start["max_elevation"] != 20.0 || start["location_lat"] != 78.23 {
		t.Errorf("start fields = %v", start)
	}
	for _, p := range pts[1:] {
		if _, ok := p.Fields["max_elevation"]; ok {
			t.Errorf("%s carries max_elevation", p.Tags["event_type"])
		}
	}
}

func TestEventsToWindows(t *testing.T) {
	max := 42.0
	at := func(s int) time.Time { return t0.Add(time.Duration(s) * time.Second) }
	records := []EventRecord{
		{Time: at(600), Kind: access.AccessEnd, ObjectID: "1", LocationID: "a", Elevation: 11},
		{Time: at(0), Kind: access.AccessStart, ObjectID: "1", LocationID: "a", Elevation: 10, MaxElevation: &max},
		{Time: at(300), Kind: access.Culmination, ObjectID: "1", LocationID: "a", Elevation: 42},
		// Dangling end with no earlier start.
		{Time: at(50), Kind: access.AccessEnd, ObjectID: "2", LocationID: "a", Elevation: 12},
		// Single-sample window stored with end first.
		{Time: at(900), Kind: access.AccessEnd, ObjectID: "2", LocationID: "b", Elevation: 10.5},
		{Time: at(900), Kind: access.AccessStart, ObjectID: "2", LocationID: "b", Elevation: 10.5},
		// Second start for the same pair: the closest earlier one wins.
		{Time: at(1000), Kind: access.AccessStart, ObjectID: "1", LocationID: "a", Elevation: 10},
		{Time: at(1060), Kind: access.AccessStart, ObjectID: "1", LocationID: "a", Elevation: 13},
		{Time: at(1120), Kind: access.AccessEnd, ObjectID: "1", LocationID: "a", Elevation: 14},
	}

	got := EventsToWindows(records)
	if len(got) != 3 {
		t.Fatalf("got %d windows, want 3: %+v", len(got), got)
	}

	if got[0].ObjectID != "1" || !got[0].Start.Equal(at(0)) || !got[0].End.Equal(at(600)) {
		t.Errorf("window 0 = %+v", got[0])
	}
	if got[0].DurationMinutes != 10 || got[0].MaxElevation != 42 {
		t.Errorf("window 0 duration/max = %v/%v", got[0].DurationMinutes, got[0].MaxElevation)
	}
	if got[1].LocationID != "b" || got[1].DurationMinutes != 0 || got[1].MaxElevation != 10.5 {
		t.Errorf("window 1 = %+v", got[1])
	}
	if !got[2].Start.Equal(at(1060)) || got[2].MaxElevation != 14 {
		t.Errorf("window 2 = %+v", got[2])
	}
}

func TestEventsToWindowsSeparatesLocationTypes(t *testing.T) {
	at := func(m int) time.Time { return t0.Add(time.Duration(m) * time.Minute) }
	gs, tg := string(metadata.GroundStation), string(metadata.Target)
	records := []EventRecord{
		{Time: at(0), Kind: access.AccessStart, ObjectID: "7", LocationID: "1", LocationType: gs, Elevation: 10},
		{Time: at(2), Kind: access.AccessStart, ObjectID: "7", LocationID: "1", LocationType: tg, Elevation: 11},
		{Time: at(5), Kind: access.AccessEnd, ObjectID: "7", LocationID: "1", LocationType: gs, Elevation: 12},
		{Time: at(7), Kind: access.AccessEnd, ObjectID: "7", LocationID: "1", LocationType: tg, Elevation: 13},
	}

	got := EventsToWindows(records)
	if len(got) != 2 {
		t.Fatalf("got %d windows, want 2: %+v", len(got), got)
	}
	if got[0].LocationType != gs || !got[0].Start.Equal(at(0)) || !got[0].End.Equal(at(5)) {
		t.Errorf("ground station window = %+v", got[0])
	}
	if got[1].LocationType != tg || !got[1].Start.Equal(at(2)) || !got[1].End.Equal(at(7)) {
		t.Errorf("target window = %+v", got[1])
	}
}

func TestEventFromValues(t *testing.T) {
	rec := eventFromValues(t0, map[string]any{
		"event_type":    "access_start",
		"satellite_id":  "25544",
		"location_id":   "3",
		"location_type": "target",
		"elevation":     12.5,
		"max_elevation": 40.0,
	})
	if rec.Kind != access.AccessStart || rec.ObjectID != "25544" || rec.LocationType != "target" {
		t.Errorf("record = %+v", rec)
	}
	if rec.MaxElevation == nil || *rec.MaxElevation != 40 {
		t.Errorf("max elevation = %v", rec.MaxElevation)
	}
}

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	mu     sync.Mutex
	lines  []string
	query  string
	status int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping", "/health":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lines = append(f.lines, strings.TrimSpace(string(body)))
		f.query = r.URL.RawQuery
		f.mu.Unlock()
		if f.status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			io.WriteString(w, `{"code":"invalid","message":"bad point"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func TestInfluxPingAndWrite(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	db := NewInflux(InfluxConfig{URL: srv.URL, Token: "t", Org: "missionplanning", Bucket: "accesswindows", Timeout: 5 * time.Second})
	defer db.Close()

	ctx := context.Background()
	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := db.Write(ctx, WindowPoint(station, iss, exampleWindow(t))); err != nil {
		t.Fatalf("Write: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.lines) != 1 {
		t.Fatalf("server saw %d writes, want 1", len(fake.lines))
	}
	line := fake.lines[0]
	for _, want := range []string{"access_window,", "satellite_mission=crew", "duration_minutes=1"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.Contains(fake.query, "bucket=accesswindows") {
		t.Errorf("write query = %q", fake.query)
	}
}

func TestInfluxWriteError(t *testing.T) {
	srv := httptest.NewServer(&fakeInflux{status: http.StatusBadRequest})
	defer srv.Close()

	db := NewInflux(InfluxConfig{URL: srv.URL, Org: "o", Bucket: "b"})
	defer db.Close()

	if err := db.Write(context.Background(), WindowPoint(station, iss, exampleWindow(t))); err == nil {
		t.Error("Write should fail on 400")
	}
}

func TestEventQuery(t *testing.T) {
	q := eventQuery("accesswindows", t0, t0.Add(72*time.Hour))
	for _, want := range []string{`from(bucket: "accesswindows")`, "2025-02-14T12:00:00Z", "2025-02-17T12:00:00Z", `"access_event"`, "pivot("} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

func TestTimeoutSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want uint
	}{
		{time.Millisecond, 1},
		{500 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{10 * time.Second, 10},
	}
	for _, tc := range tests {
		if got := timeoutSeconds(tc.in); got != tc.want {
			t.Errorf("timeoutSeconds(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
