package propagation

import (
	"time"

	"github.com/star/accessplan/internal/tle"
)

// Observer is a ground location. Altitude is meters above the WGS-84 ellipsoid.
type Observer struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// LookAngles holds azimuth, elevation, and range from observer to satellite.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise
	ElevationDeg float64 // 0 = horizon, 90 = zenith
	RangeKm      float64
}

// SubPoint is the geodetic point directly beneath the satellite.
type SubPoint struct {
	LatDeg     float64
	LonDeg     float64
	AltitudeKm float64
}

// Model answers position queries for one tracked object.
type Model interface {
	LookAngles(obs Observer, t time.Time) (LookAngles, error)
	SubPoint(t time.Time) (SubPoint, error)
}

// Factory builds a Model from an element set. A non-nil error means the
// elements could not initialise the propagator at all.
type Factory func(elems tle.Elements) (Model, error)
