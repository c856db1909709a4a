package tle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Elements is a two-line element set as stored in the metadata store.
type Elements struct {
	Line1 string
	Line2 string
}

// Entry is a named element set read from a 3-line NORAD file.
type Entry struct {
	NORADID  int
	Name     string
	Epoch    time.Time
	Elements Elements
}

// Validate performs basic format validation on both lines.
// The SGP4 library calls log.Fatal on malformed input, so every element set
// must pass through here before it reaches the propagator.
func (e Elements) Validate() error {
	line1 := strings.TrimSpace(e.Line1)
	line2 := strings.TrimSpace(e.Line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	if strings.TrimSpace(line1[2:7]) != strings.TrimSpace(line2[2:7]) {
		return fmt.Errorf("catalog number mismatch: %q vs %q", line1[2:7], line2[2:7])
	}
	return nil
}

// Trimmed returns the element set with surrounding whitespace removed from both lines.
func (e Elements) Trimmed() Elements {
	return Elements{Line1: strings.TrimSpace(e.Line1), Line2: strings.TrimSpace(e.Line2)}
}

// NORADID extracts the catalog number from line 1 (columns 3-7).
func (e Elements) NORADID() (int, error) {
	line1 := strings.TrimSpace(e.Line1)
	if len(line1) < 7 {
		return 0, fmt.Errorf("line1 too short for catalog number")
	}
	id, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return 0, fmt.Errorf("invalid catalog number %q: %w", line1[2:7], err)
	}
	return id, nil
}

// Epoch extracts the element set epoch from line 1 (columns 19-32).
func (e Elements) Epoch() (time.Time, error) {
	line1 := strings.TrimSpace(e.Line1)
	if len(line1) < 32 {
		return time.Time{}, fmt.Errorf("line1 too short for epoch")
	}
	return parseEpoch(strings.TrimSpace(line1[18:32]))
}
