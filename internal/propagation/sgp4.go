package propagation

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/star/accessplan/internal/tle"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go, explicit TEME output, and it ships the ECI→look-angle and ECI→LLA
// helpers, so no frame math lives in this repository.
//
// Propagate() takes Satellite by value so SGP4 error codes are not visible
// to the caller. Failures are detected by checking output for NaN/Inf and
// unreasonable position magnitudes.

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// SGP4Model wraps the go-satellite library for a single satellite.
type SGP4Model struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4 is a Factory backed by go-satellite.
func NewSGP4(elems tle.Elements) (Model, error) {
	return NewSGP4Model(elems)
}

// NewSGP4Model creates an SGP4 model from TLE lines.
// Returns an error if the TLE cannot be parsed or the SGP4 model fails to initialize.
func NewSGP4Model(elems tle.Elements) (*SGP4Model, error) {
	if err := elems.Validate(); err != nil {
		return nil, fmt.Errorf("invalid TLE: %w", err)
	}
	elems = elems.Trimmed()

	noradID, err := elems.NORADID()
	if err != nil {
		return nil, fmt.Errorf("invalid TLE: %w", err)
	}

	sat := satellite.TLEToSat(elems.Line1, elems.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Model{sat: sat, noradID: noradID}, nil
}

// eci propagates to t and returns the TEME position in km.
func (m *SGP4Model) eci(t time.Time) (satellite.Vector3, error) {
	t = t.UTC()
	pos, _ := satellite.Propagate(m.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return satellite.Vector3{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", m.noradID)
	}

	// Position magnitude should be between ~6200km and ~50000km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return satellite.Vector3{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", m.noradID, mag)
	}
	return pos, nil
}

// LookAngles computes azimuth, elevation and range from obs to the satellite at t.
func (m *SGP4Model) LookAngles(obs Observer, t time.Time) (LookAngles, error) {
	pos, err := m.eci(t)
	if err != nil {
		return LookAngles{}, err
	}

	t = t.UTC()
	jday := satellite.JDay(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	site := satellite.LatLong{Latitude: obs.LatDeg * deg2rad, Longitude: obs.LonDeg * deg2rad}
	la := satellite.ECIToLookAngles(pos, site, obs.AltM/1000.0, jday)

	az := math.Mod(la.Az*rad2deg, 360)
	if az < 0 {
		az += 360
	}
	return LookAngles{
		AzimuthDeg:   az,
		ElevationDeg: la.El * rad2deg,
		RangeKm:      la.Rg,
	}, nil
}

// SubPoint computes the sub-satellite geodetic point at t.
func (m *SGP4Model) SubPoint(t time.Time) (SubPoint, error) {
	pos, err := m.eci(t)
	if err != nil {
		return SubPoint{}, err
	}

	t = t.UTC()
	gmst := satellite.GSTimeFromDate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	alt, _, ll := satellite.ECIToLLA(pos, gmst)

	// ECIToLLA does not bound longitude to a single turn.
	lon := math.Mod(ll.Longitude*rad2deg+540, 360)
	if lon < 0 {
		lon += 360
	}
	return SubPoint{LatDeg: ll.Latitude * rad2deg, LonDeg: lon - 180, AltitudeKm: alt}, nil
}
