// Package poscache keeps a short look-ahead position series per tracked
// object in the key-value store, plus a derived current-position snapshot.
//
// Every refresh replaces both records whole and stamps them with a TTL. When
// no refresh happens in time the records expire and lookups report
// ErrNotFound instead of serving stale positions.
package poscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"

	"github.com/star/accessplan/internal/kvstore"
	"github.com/star/accessplan/internal/metrics"
	"github.com/star/accessplan/internal/propagation"
)

// ErrNotFound is returned when a record is missing or expired.
var ErrNotFound = errors.New("poscache: not found")

const statusKey = "status:positions"

// PositionsKey and CurrentKey name the records of one object.
func PositionsKey(id string) string { return "positions:" + id }
func CurrentKey(id string) string   { return "current:" + id }

// Config holds cache configuration.
type Config struct {
	Horizon   time.Duration // look-ahead span of each series (default: 270m)
	Step      time.Duration // spacing between positions (default: 60s)
	TTL       time.Duration // lifetime of positions and current records (default: 3h)
	StatusTTL time.Duration // lifetime of the last-run status (default: 1h)
	Workers   int
}

// Position is one sub-satellite point. Nil fields mean the model failed here.
type Position struct {
	Timestamp     time.Time `json:"timestamp"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	AltitudeKm    *float64  `json:"altitude_km"`
	UnixTimestamp int64     `json:"unix_timestamp"`
	Error         string    `json:"error,omitempty"`
}

// Valid reports whether the position carries coordinates.
func (p Position) Valid() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Record is the stored series of one object.
type Record struct {
	ObjectID   string     `json:"satellite_id"`
	ObjectName string     `json:"satellite_name"`
	Positions  []Position `json:"positions"`
	ComputedAt time.Time  `json:"calculated_at"`
	Total      int        `json:"total_positions"`
}

// Current is the stored nearest-to-now snapshot of one object.
type Current struct {
	ObjectID   string    `json:"satellite_id"`
	ObjectName string    `json:"satellite_name"`
	Position   Position  `json:"position"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Cache reads and writes position records. Safe for concurrent use.
type Cache struct {
	store   kvstore.Store
	factory propagation.Factory
	config  Config
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a position cache over store.
func New(store kvstore.Store, factory propagation.Factory, config Config, logger *slog.Logger) *Cache {
	if config.Workers < 1 {
		config.Workers = 1
	}
	logger.Info("position cache initialized",
		"horizon_minutes", config.Horizon.Minutes(),
		"step_seconds", config.Step.Seconds(),
		"ttl_seconds", config.TTL.Seconds(),
	)
	return &Cache{
		store:   store,
		factory: factory,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Closest returns the valid position whose time is nearest to ref. Ties go to
// the earliest position. ok is false when no position is valid.
func Closest(series []Position, ref time.Time) (Position, bool) {
	var (
		best     Position
		bestDiff time.Duration
		found    bool
	)
	for _, p := range series {
		if !p.Valid() {
			continue
		}
		diff := p.Timestamp.Sub(ref)
		if diff < 0 {
			diff = -diff
		}
		if !found || diff < bestDiff {
			best, bestDiff, found = p, diff, true
		}
	}
	return best, found
}

// Put replaces the records of one object: the full series, and the current
// snapshot when the series has a valid position.
func (c *Cache) Put(ctx context.Context, id, name string, series []Position) error {
	now := c.now().UTC()

	rec := Record{
		ObjectID:   id,
		ObjectName: name,
		Positions:  series,
		ComputedAt: now,
		Total:      len(series),
	}
	if err := c.putJSON(ctx, PositionsKey(id), rec, c.config.TTL); err != nil {
		return err
	}

	pos, ok := Closest(series, now)
	if !ok {
		c.logger.Warn("no valid position for current snapshot", "satellite_id", id)
		return nil
	}
	cur := Current{ObjectID: id, ObjectName: name, Position: pos, UpdatedAt: now}
	return c.putJSON(ctx, CurrentKey(id), cur, c.config.TTL)
}

// Positions returns the stored series of one object.
func (c *Cache) Positions(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := c.getJSON(ctx, PositionsKey(id), &rec)
	return rec, err
}

// Current returns the stored current snapshot of one object.
func (c *Cache) Current(ctx context.Context, id string) (Current, error) {
	var cur Current
	err := c.getJSON(ctx, CurrentKey(id), &cur)
	return cur, err
}

// Status returns the summary of the last refresh, if it has not expired.
func (c *Cache) Status(ctx context.Context) (Summary, error) {
	var s Summary
	err := c.getJSON(ctx, statusKey, &s)
	return s, err
}

func (c *Cache) putJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := c.store.SetWithTTL(ctx, key, b, ttl); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (c *Cache) getJSON(ctx context.Context, key string, v any) error {
	b, err := c.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		metrics.IncCacheMisses()
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return err
	}
	metrics.IncCacheHits()
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
