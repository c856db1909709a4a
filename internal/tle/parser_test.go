package tle

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

func TestParse(t *testing.T) {
	body := "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n" +
		"GARBAGE\nnot a tle line\n" +
		"STARLINK-1007\n" +
		"1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995\n" +
		"2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05\n"

	entries, err := Parse(strings.NewReader(body), testLogger)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	if entries[0].NORADID != 25544 || entries[0].Name != "ISS (ZARYA)" {
		t.Errorf("entry 0 = %d %q, want 25544 ISS (ZARYA)", entries[0].NORADID, entries[0].Name)
	}
	if entries[1].NORADID != 44713 {
		t.Errorf("entry 1 NORAD ID = %d, want 44713", entries[1].NORADID)
	}

	wantEpoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if !entries[0].Epoch.Equal(wantEpoch) {
		t.Errorf("epoch = %v, want %v", entries[0].Epoch, wantEpoch)
	}
}

func TestParseEpochCentury(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"57001.00000000", time.Date(1957, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"56001.00000000", time.Date(2056, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"25045.50000000", time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseEpoch(tt.in)
		if err != nil {
			t.Fatalf("parseEpoch(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseEpoch(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseEpoch("24"); err == nil {
		t.Error("expected error for short epoch")
	}
}

func TestElementsValidate(t *testing.T) {
	tests := []struct {
		name    string
		elems   Elements
		wantErr bool
	}{
		{"valid", Elements{issLine1, issLine2}, false},
		{"surrounding whitespace", Elements{"  " + issLine1 + "\n", issLine2 + " "}, false},
		{"short line1", Elements{"1 25544U", issLine2}, true},
		{"swapped lines", Elements{issLine2, issLine1}, true},
		{"catalog mismatch", Elements{issLine1, strings.Replace(issLine2, "25544", "25545", 1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.elems.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
