// Package sweep computes access windows for every observer and tracked
// object pair over a shared time range and writes them out.
//
// A pair that cannot be computed is recorded in the run summary and
// contributes no windows; it never stops the rest of the run.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/star/accessplan/internal/access"
	"github.com/star/accessplan/internal/metadata"
	"github.com/star/accessplan/internal/metrics"
	"github.com/star/accessplan/internal/propagation"
	"github.com/star/accessplan/internal/sampling"
)

// ErrNoSamples means no grid point of a pair produced a usable sample.
var ErrNoSamples = errors.New("no usable samples in range")

// PairError records why one observer/object pair produced nothing.
type PairError struct {
	ObserverID string
	ObjectID   string
	Err        error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("observer %s / object %s: %v", e.ObserverID, e.ObjectID, e.Err)
}

func (e *PairError) Unwrap() error { return e.Err }

// Sink stores the windows of one pair and returns how many writes failed.
type Sink interface {
	WriteWindows(ctx context.Context, obs metadata.Observer, obj metadata.TrackedObject, windows []access.Window) int
}

// Config holds sweep parameters.
type Config struct {
	Start        time.Time
	Horizon      time.Duration // default: 72h
	Step         time.Duration // default: 30s
	MinElevation float64       // degrees, default: 10
	Workers      int           // default: runtime.NumCPU()
}

// PairResult is the outcome of one pair.
type PairResult struct {
	Observer       metadata.Observer
	Object         metadata.TrackedObject
	Windows        []access.Window
	SampleFailures int
	WriteFailures  int
	Err            error
}

// Summary describes one run.
type Summary struct {
	RunID          string    `json:"run_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	PairsAttempted int       `json:"pairs_attempted"`
	PairsSucceeded int       `json:"pairs_succeeded"`
	PairsFailed    int       `json:"pairs_failed"`
	WindowsFound   int       `json:"windows_found"`
	WritesFailed   int       `json:"writes_failed"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Errors         []string  `json:"errors"`
}

// Result holds the summary and per-pair outcomes, ordered observer-major.
type Result struct {
	Summary Summary
	Pairs   []PairResult
}

// Orchestrator runs sweeps. The sink may be nil, in which case windows are
// only returned.
type Orchestrator struct {
	factory propagation.Factory
	sink    Sink
	config  Config
	logger  *slog.Logger
}

// New creates an orchestrator.
func New(factory propagation.Factory, sink Sink, config Config, logger *slog.Logger) *Orchestrator {
	if config.Workers < 1 {
		config.Workers = runtime.NumCPU()
	}
	return &Orchestrator{factory: factory, sink: sink, config: config, logger: logger}
}

type model struct {
	m   propagation.Model
	err error
}

// Run processes every observer × object pair. Pairs are processed
// concurrently; the result order follows the input order.
func (o *Orchestrator) Run(ctx context.Context, observers []metadata.Observer, objects []metadata.TrackedObject) Result {
	started := time.Now()
	grid := sampling.Grid{
		Start: o.config.Start,
		End:   o.config.Start.Add(o.config.Horizon),
		Step:  o.config.Step,
	}

	summary := Summary{
		RunID:          uuid.NewString(),
		Start:          grid.Start.UTC(),
		End:            grid.End.UTC(),
		PairsAttempted: len(observers) * len(objects),
		Errors:         []string{},
	}
	o.logger.Info("starting sweep",
		"run_id", summary.RunID,
		"observers", len(observers),
		"objects", len(objects),
		"start", summary.Start,
		"end", summary.End,
		"step", o.config.Step,
		"min_elevation", o.config.MinElevation,
	)

	// One model per object, shared by all of its pairs.
	models := make([]model, len(objects))
	for i, obj := range objects {
		m, err := o.factory(obj.Elements)
		if err != nil {
			err = fmt.Errorf("build model for %s: %w", obj.Name, err)
		}
		models[i] = model{m: m, err: err}
	}

	pairs := make([]PairResult, len(observers)*len(objects))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)

	for i, obs := range observers {
		for j, obj := range objects {
			obs, j, obj := obs, j, obj
			idx := i*len(objects) + j
			g.Go(func() error {
				res := o.pair(gctx, grid, obs, obj, models[j])
				pairs[idx] = res

				mu.Lock()
				defer mu.Unlock()
				summary.WritesFailed += res.WriteFailures
				if res.Err != nil {
					summary.PairsFailed++
					metrics.IncPairs("failed")
					return nil
				}
				summary.PairsSucceeded++
				summary.WindowsFound += len(res.Windows)
				metrics.IncPairs("succeeded")
				metrics.AddWindows(len(res.Windows))
				return nil
			})
		}
	}
	g.Wait()

	for _, p := range pairs {
		if p.Err != nil {
			summary.Errors = append(summary.Errors, p.Err.Error())
		}
	}

	elapsed := time.Since(started)
	summary.ElapsedSeconds = elapsed.Seconds()
	metrics.ObserveRun("sweep", elapsed)

	o.logger.Info("sweep completed",
		"run_id", summary.RunID,
		"attempted", summary.PairsAttempted,
		"succeeded", summary.PairsSucceeded,
		"failed", summary.PairsFailed,
		"windows", summary.WindowsFound,
		"writes_failed", summary.WritesFailed,
		"elapsed", elapsed,
	)
	return Result{Summary: summary, Pairs: pairs}
}

// pair runs sampler, detector and extractor for one observer and object.
func (o *Orchestrator) pair(ctx context.Context, grid sampling.Grid, obs metadata.Observer, obj metadata.TrackedObject, mdl model) PairResult {
	res := PairResult{Observer: obs, Object: obj}
	fail := func(err error) PairResult {
		res.Err = &PairError{ObserverID: obs.ID, ObjectID: obj.ID, Err: err}
		o.logger.Warn("pair failed",
			"observer_id", obs.ID,
			"observer", obs.Name,
			"object_id", obj.ID,
			"object", obj.Name,
			"error", err,
		)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if mdl.err != nil {
		return fail(mdl.err)
	}
	if err := obs.Validate(); err != nil {
		return fail(err)
	}

	samples := sampling.Angles(grid, sampling.Observe(mdl.m, obs.Location()))
	valid := sampling.CountValid(samples)
	res.SampleFailures = len(samples) - valid
	metrics.AddSampleFailures(res.SampleFailures)
	if valid == 0 {
		return fail(ErrNoSamples)
	}

	res.Windows = access.Detect(samples, o.config.MinElevation)
	o.logger.Debug("pair processed",
		"observer_id", obs.ID,
		"object_id", obj.ID,
		"samples", len(samples),
		"sample_failures", res.SampleFailures,
		"windows", len(res.Windows),
	)

	if o.sink != nil && len(res.Windows) > 0 {
		res.WriteFailures = o.sink.WriteWindows(ctx, obs, obj, res.Windows)
	}
	return res
}
