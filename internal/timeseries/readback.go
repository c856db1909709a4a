package timeseries

import (
	"sort"
	"time"

	"github.com/star/accessplan/internal/access"
)

// EventRecord is one stored access event.
type EventRecord struct {
	Time         time.Time
	Kind         access.EventKind
	ObjectID     string
	ObjectName   string
	LocationID   string
	LocationName string
	LocationType string
	Elevation    float64
	MaxElevation *float64
}

// StoredWindow is a window rebuilt from stored events.
type StoredWindow struct {
	ObjectID        string    `json:"satellite_id"`
	ObjectName      string    `json:"satellite_name"`
	LocationID      string    `json:"location_id"`
	LocationName    string    `json:"location_name"`
	LocationType    string    `json:"location_type"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes float64   `json:"duration_minutes"`
	MaxElevation    float64   `json:"max_elevation"`
}

func eventFromValues(t time.Time, v map[string]any) EventRecord {
	str := func(k string) string {
		s, _ := v[k].(string)
		return s
	}
	rec := EventRecord{
		Time:         t,
		Kind:         access.EventKind(str("event_type")),
		ObjectID:     str("satellite_id"),
		ObjectName:   str("satellite_name"),
		LocationID:   str("location_id"),
		LocationName: str("location_name"),
		LocationType: str("location_type"),
	}
	if el, ok := v["elevation"].(float64); ok {
		rec.Elevation = el
	}
	if m, ok := v["max_elevation"].(float64); ok {
		rec.MaxElevation = &m
	}
	return rec
}

// kindRank orders events sharing a timestamp, as in a single-sample window.
var kindRank = map[access.EventKind]int{
	access.AccessStart: 0,
	access.Culmination: 1,
	access.AccessEnd:   2,
}

// Ground station and target ids come from separate tables and may collide.
type pairKey struct{ object, location, locationType string }

// EventsToWindows pairs every access_end with the closest earlier access_start
// of the same object and location (id and type). Unpaired events are dropped. When the start
// event carries no max elevation, the highest event seen in the window is used.
// Output is ordered by start time, then object and location.
func EventsToWindows(records []EventRecord) []StoredWindow {
	groups := make(map[pairKey][]EventRecord)
	for _, r := range records {
		k := pairKey{r.ObjectID, r.LocationID, r.LocationType}
		groups[k] = append(groups[k], r)
	}

	var out []StoredWindow
	for _, evs := range groups {
		sort.SliceStable(evs, func(i, j int) bool {
			if !evs[i].Time.Equal(evs[j].Time) {
				return evs[i].Time.Before(evs[j].Time)
			}
			return kindRank[evs[i].Kind] < kindRank[evs[j].Kind]
		})

		var (
			open *EventRecord
			peak float64
		)
		for i := range evs {
			ev := evs[i]
			switch ev.Kind {
			case access.AccessStart:
				open = &evs[i]
				peak = ev.Elevation
			case access.Culmination:
				if open != nil && ev.Elevation > peak {
					peak = ev.Elevation
				}
			case access.AccessEnd:
				if open == nil {
					continue
				}
				if ev.Elevation > peak {
					peak = ev.Elevation
				}
				if open.MaxElevation != nil {
					peak = *open.MaxElevation
				}
				out = append(out, StoredWindow{
					ObjectID:        open.ObjectID,
					ObjectName:      open.ObjectName,
					LocationID:      open.LocationID,
					LocationName:    open.LocationName,
					LocationType:    open.LocationType,
					Start:           open.Time,
					End:             ev.Time,
					DurationMinutes: ev.Time.Sub(open.Time).Minutes(),
					MaxElevation:    peak,
				})
				open = nil
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		if out[i].ObjectID != out[j].ObjectID {
			return out[i].ObjectID < out[j].ObjectID
		}
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].LocationType < out[j].LocationType
	})
	return out
}
