package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	_ "github.com/lib/pq"
)

const (
	groundStationQuery = `
		SELECT gs_id, name, latitude, longitude, COALESCE(altitude, 0)
		FROM ground_station
		ORDER BY name, gs_id`

	targetQuery = `
		SELECT target_id, name, coordinate1, coordinate2
		FROM targets
		WHERE target_type = 'geographic'
		  AND coordinate1 IS NOT NULL AND coordinate2 IS NOT NULL
		ORDER BY name, target_id`

	satelliteQuery = `
		SELECT satellite_id, name, COALESCE(mission, ''), tle_1, tle_2
		FROM satellite
		ORDER BY name, satellite_id`
)

// Open opens a Postgres handle and verifies it answers.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var _ Source = (*Postgres)(nil)

// Postgres reads ground stations, geographic targets and satellites.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres wraps an open handle.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// Observers returns ground stations followed by targets, each group by name.
func (p *Postgres) Observers(ctx context.Context) ([]Observer, error) {
	stations, err := p.groundStations(ctx)
	if err != nil {
		return nil, err
	}
	targets, err := p.targets(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Info("loaded observers", "ground_stations", len(stations), "targets", len(targets))
	return append(stations, targets...), nil
}

func (p *Postgres) groundStations(ctx context.Context) ([]Observer, error) {
	rows, err := p.db.QueryContext(ctx, groundStationQuery)
	if err != nil {
		return nil, fmt.Errorf("query ground stations: %w", err)
	}
	defer rows.Close()

	var out []Observer
	for rows.Next() {
		var (
			id  int64
			obs = Observer{Kind: GroundStation}
		)
		if err := rows.Scan(&id, &obs.Name, &obs.Lat, &obs.Lon, &obs.Alt); err != nil {
			return nil, fmt.Errorf("scan ground station: %w", err)
		}
		obs.ID = strconv.FormatInt(id, 10)
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ground stations: %w", err)
	}
	return out, nil
}

func (p *Postgres) targets(ctx context.Context) ([]Observer, error) {
	rows, err := p.db.QueryContext(ctx, targetQuery)
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer rows.Close()

	var out []Observer
	for rows.Next() {
		var (
			id  int64
			obs = Observer{Kind: Target}
		)
		if err := rows.Scan(&id, &obs.Name, &obs.Lat, &obs.Lon); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		obs.ID = strconv.FormatInt(id, 10)
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate targets: %w", err)
	}
	return out, nil
}

// Objects returns every satellite ordered by name.
func (p *Postgres) Objects(ctx context.Context) ([]TrackedObject, error) {
	rows, err := p.db.QueryContext(ctx, satelliteQuery)
	if err != nil {
		return nil, fmt.Errorf("query satellites: %w", err)
	}
	defer rows.Close()

	var out []TrackedObject
	for rows.Next() {
		var (
			id           int64
			obj          TrackedObject
			line1, line2 sql.NullString
		)
		if err := rows.Scan(&id, &obj.Name, &obj.Mission, &line1, &line2); err != nil {
			return nil, fmt.Errorf("scan satellite: %w", err)
		}
		obj.ID = strconv.FormatInt(id, 10)
		// Missing elements are left empty; the pairs fail at model build.
		if !line1.Valid || !line2.Valid {
			p.logger.Warn("satellite has no orbital elements", "object_id", obj.ID, "name", obj.Name)
		}
		obj.Elements.Line1 = line1.String
		obj.Elements.Line2 = line2.String
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate satellites: %w", err)
	}
	p.logger.Info("loaded tracked objects", "count", len(out))
	return out, nil
}
