// Package metadata reads the observers and tracked objects a sweep runs over.
package metadata

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/star/accessplan/internal/propagation"
	"github.com/star/accessplan/internal/tle"
)

// Kind distinguishes observer sources. It is written as the location_type tag.
type Kind string

const (
	GroundStation Kind = "ground_station"
	Target        Kind = "target"
)

// Observer is a fixed observation point.
type Observer struct {
	ID   string  `json:"id" validate:"required"`
	Name string  `json:"name"`
	Kind Kind    `json:"kind" validate:"oneof=ground_station target"`
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `json:"lon" validate:"gte=-180,lte=180"`
	Alt  float64 `json:"alt"` // metres
}

// Location converts the observer to the propagation input.
func (o Observer) Location() propagation.Observer {
	return propagation.Observer{LatDeg: o.Lat, LonDeg: o.Lon, AltM: o.Alt}
}

// TrackedObject is a satellite with its current orbital elements.
type TrackedObject struct {
	ID       string       `json:"id" validate:"required"`
	Name     string       `json:"name"`
	Mission  string       `json:"mission"`
	Elements tle.Elements `json:"elements"`
}

var validate = validator.New()

// Validate checks the observer location.
func (o Observer) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("observer %s: %w", o.ID, err)
	}
	return nil
}

// Source lists sweep inputs. Both lists come back in a stable order so that
// repeated runs over the same rows produce the same output order.
type Source interface {
	Observers(ctx context.Context) ([]Observer, error)
	Objects(ctx context.Context) ([]TrackedObject, error)
}
