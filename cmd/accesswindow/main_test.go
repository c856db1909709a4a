package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

const (
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058"
)

func fixedNow() time.Time { return time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC) }

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr, fixedNow)
	return code, stdout.String(), stderr.String()
}

func TestRunLegacy(t *testing.T) {
	code, out, errOut := runCmd(t,
		"-lat", "40.7128", "-lon", "-74.006",
		"-tle1", issLine1, "-tle2", issLine2,
		"-start", "2025-02-14T12:00:00Z", "-end", "2025-02-15T12:00:00Z",
	)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}

	var pairs [][2]string
	if err := json.Unmarshal([]byte(out), &pairs); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(pairs) == 0 {
		t.Fatal("expected at least one window in 24h")
	}
	for _, p := range pairs {
		start, err := time.Parse("2006-01-02T15:04:05", p[0])
		if err != nil {
			t.Fatalf("start %q: %v", p[0], err)
		}
		end, _ := time.Parse("2006-01-02T15:04:05", p[1])
		if end.Before(start) {
			t.Errorf("window %v ends before it starts", p)
		}
	}
}

func TestRunEventsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iss.tle")
	content := "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCmd(t,
		"-lat", "40.7128", "-lon", "-74.006",
		"-tle-file", path, "-norad", "25544",
		"-start", "2025-02-14T12:00:00", "-end", "2025-02-15T12:00:00",
		"-output", "events",
	)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}

	var events []map[string]any
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) == 0 || len(events)%3 != 0 {
		t.Fatalf("got %d events, want a positive multiple of 3", len(events))
	}
	if events[0]["event_type"] != "access_start" || events[0]["duration_minutes"] == nil {
		t.Errorf("first event = %v", events[0])
	}
}

func TestRunDetailedDefaultsToNow(t *testing.T) {
	code, out, errOut := runCmd(t,
		"-lat", "40.7128", "-lon", "-74.006",
		"-tle1", issLine1, "-tle2", issLine2,
		"-output", "detailed", "-step", "60",
	)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	var doc struct {
		Start       time.Time `json:"start"`
		End         time.Time `json:"end"`
		StepSeconds int       `json:"step_seconds"`
		Count       int       `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !doc.Start.Equal(fixedNow()) || !doc.End.Equal(fixedNow().Add(24*time.Hour)) {
		t.Errorf("range = %v .. %v", doc.Start, doc.End)
	}
	if doc.StepSeconds != 60 {
		t.Errorf("step_seconds = %d", doc.StepSeconds)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing tle", []string{"-lat", "1"}, "-tle1 and -tle2"},
		{"bad output", []string{"-tle1", issLine1, "-tle2", issLine2, "-output", "csv"}, "unknown output mode"},
		{"bad start", []string{"-tle1", issLine1, "-tle2", issLine2, "-start", "yesterday"}, "invalid -start"},
		{"bad latitude", []string{"-lat", "95", "-tle1", issLine1, "-tle2", issLine2}, "out of range"},
		{"bad step", []string{"-step", "0", "-tle1", issLine1, "-tle2", issLine2}, "step must be positive"},
		{"malformed tle", []string{"-tle1", "1 25544U", "-tle2", "2 25544"}, "invalid TLE"},
		{"unknown flag", []string{"-frobnicate"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCmd(t, tt.args...)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if tt.want != "" && !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr %q missing %q", errOut, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 2, 14, 12, 30, 0, 0, time.UTC)
	for _, s := range []string{"2025-02-14T12:30:00Z", "2025-02-14T12:30:00", "2025-02-14T12:30", "2025-02-14T13:30:00+01:00"} {
		got, err := parseTime(s)
		if err != nil {
			t.Errorf("parseTime(%q): %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseTime(%q) = %v, want %v", s, got, want)
		}
	}
}
