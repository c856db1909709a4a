// Package store acquires the metadata, time-series and cache connections a
// run needs and performs the run's tagged writes.
//
// Acquisition retries each store under a fixed policy and fails the run when
// any store stays unreachable. Writes made after that are attempted once and
// skipped on failure.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/star/accessplan/internal/kvstore"
	"github.com/star/accessplan/internal/metadata"
	"github.com/star/accessplan/internal/metrics"
	"github.com/star/accessplan/internal/retry"
	"github.com/star/accessplan/internal/timeseries"
)

// Store names used in errors, logs and metric labels.
const (
	Postgres = "postgres"
	Influx   = "influx"
	Cache    = "cache"
)

// ConnectionError reports a store that could not be reached within the
// retry budget.
type ConnectionError struct {
	Store    string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: gave up after %d attempts: %v", e.Store, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Config selects and locates the three stores.
type Config struct {
	Retry        retry.Policy
	PostgresDSN  string
	Influx       timeseries.InfluxConfig
	CacheBackend string // "redis" or "badger"
	Redis        kvstore.RedisConfig
	BadgerPath   string
}

// Handles are the live connections of one run.
type Handles struct {
	DB     *sql.DB
	Series *timeseries.Influx
	Cache  kvstore.Store
}

// Close releases every handle that was acquired.
func (h *Handles) Close() error {
	var errs []error
	if h.Cache != nil {
		errs = append(errs, h.Cache.Close())
	}
	if h.Series != nil {
		h.Series.Close()
	}
	if h.DB != nil {
		errs = append(errs, h.DB.Close())
	}
	return errors.Join(errs...)
}

// Acquire dials one store under the retry policy.
func Acquire[T any](ctx context.Context, p retry.Policy, logger *slog.Logger, name string, dial func(context.Context) (T, error)) (T, error) {
	v, attempts, err := retry.Do(ctx, p, logger, name, func(ctx context.Context) (T, error) {
		metrics.IncConnectAttempts(name)
		return dial(ctx)
	})
	if err != nil {
		var zero T
		return zero, &ConnectionError{Store: name, Attempts: attempts, Err: err}
	}
	logger.Info("store connected", "store", name, "attempts", attempts)
	return v, nil
}

// Connect acquires the metadata, time-series and cache stores in that order.
// On failure the handles already acquired are released.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Handles, error) {
	h := &Handles{}

	db, err := Acquire(ctx, cfg.Retry, logger, Postgres, func(ctx context.Context) (*sql.DB, error) {
		return metadata.Open(ctx, cfg.PostgresDSN)
	})
	if err != nil {
		return nil, err
	}
	h.DB = db

	series, err := Acquire(ctx, cfg.Retry, logger, Influx, func(ctx context.Context) (*timeseries.Influx, error) {
		c := timeseries.NewInflux(cfg.Influx)
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		h.Close()
		return nil, err
	}
	h.Series = series

	cache, err := Acquire(ctx, cfg.Retry, logger, Cache, func(ctx context.Context) (kvstore.Store, error) {
		return dialCache(ctx, cfg)
	})
	if err != nil {
		h.Close()
		return nil, err
	}
	h.Cache = cache

	return h, nil
}

func dialCache(ctx context.Context, cfg Config) (kvstore.Store, error) {
	switch cfg.CacheBackend {
	case "", "redis":
		r := kvstore.NewRedis(cfg.Redis)
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil
	case "badger":
		return kvstore.OpenBadger(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
