// Command accessplan runs one planning batch: it computes access windows for
// every observer and satellite pair over the configured horizon, writes them
// to the time-series store, refreshes the position cache and prints both run
// summaries as JSON on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"

	"github.com/star/accessplan/internal/api"
	"github.com/star/accessplan/internal/config"
	"github.com/star/accessplan/internal/health"
	"github.com/star/accessplan/internal/kvstore"
	"github.com/star/accessplan/internal/metadata"
	"github.com/star/accessplan/internal/poscache"
	"github.com/star/accessplan/internal/propagation"
	"github.com/star/accessplan/internal/retry"
	"github.com/star/accessplan/internal/store"
	"github.com/star/accessplan/internal/sweep"
	"github.com/star/accessplan/internal/timeseries"
)

// output is the document printed on stdout.
type output struct {
	Sweep     sweep.Summary    `json:"access_windows"`
	Positions poscache.Summary `json:"positions"`
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: $"+config.PathEnvVar+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// stdout carries the run summary; logs go to stderr.
	logger := config.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	var readiness health.Readiness
	if cfg.Metrics.Addr != "" {
		srv := api.NewServer(cfg.Metrics.Addr, logger, &readiness)
		go func() {
			logger.Info("starting operations listener", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("operations listener error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
				logger.Warn("operations listener shutdown error", "error", err)
			}
		}()
	}

	handles, err := store.Connect(ctx, storeConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := handles.Close(); err != nil {
			logger.Warn("failed to close stores", "error", err)
		}
	}()
	readiness.SetReady(true)

	observers, objects, err := loadEntities(ctx, metadata.NewPostgres(handles.DB, logger))
	if err != nil {
		return err
	}

	sink := store.NewSink(handles.Series, store.Layout(cfg.Sweep.Record), logger)
	orch := sweep.New(propagation.NewSGP4, sink, sweep.Config{
		Start:        time.Now().UTC(),
		Horizon:      cfg.Sweep.Horizon,
		Step:         cfg.Sweep.Step,
		MinElevation: cfg.Sweep.MinElevation,
		Workers:      cfg.Sweep.Workers,
	}, logger)
	result := orch.Run(ctx, observers, objects)

	positions := poscache.New(handles.Cache, propagation.NewSGP4, poscache.Config{
		Horizon:   cfg.Cache.Horizon,
		Step:      cfg.Cache.Step,
		TTL:       cfg.Cache.TTL,
		StatusTTL: cfg.Cache.StatusTTL,
		Workers:   cfg.Sweep.Workers,
	}, logger)
	posSummary := positions.Refresh(ctx, objects)

	enc := json.NewEncoder(stdout)
	if err := enc.Encode(output{Sweep: result.Summary, Positions: posSummary}); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func loadEntities(ctx context.Context, src metadata.Source) ([]metadata.Observer, []metadata.TrackedObject, error) {
	observers, err := src.Observers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load observers: %w", err)
	}
	objects, err := src.Objects(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load tracked objects: %w", err)
	}
	return observers, objects, nil
}

func storeConfig(cfg *config.Config) store.Config {
	return store.Config{
		Retry:       retry.Policy{MaxAttempts: cfg.Connect.MaxAttempts, Delay: cfg.Connect.Delay},
		PostgresDSN: cfg.Postgres.DSN,
		Influx: timeseries.InfluxConfig{
			URL:     cfg.Influx.URL,
			Token:   cfg.Influx.Token,
			Org:     cfg.Influx.Org,
			Bucket:  cfg.Influx.Bucket,
			Timeout: cfg.Influx.Timeout,
		},
		CacheBackend: cfg.Cache.Backend,
		Redis: kvstore.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
		BadgerPath: cfg.Cache.Badger.Path,
	}
}
