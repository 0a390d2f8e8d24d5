package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/metrics"
	"github.com/afg1/bqeval/vectordb"
)

// Evaluator runs queries against a collection and measures how often the
// expected text comes back for each search configuration.
type Evaluator struct {
	collection  vectordb.Collection
	parallelism int
	limiter     *rate.Limiter
	monitor     Monitor
	recorder    *metrics.Recorder
	logger      *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator) error

// WithParallelism sets how many queries of a cell run concurrently.
// Default is 1, which keeps latencies free of client-side contention.
func WithParallelism(n int) Option {
	return func(e *Evaluator) error {
		if n < 1 {
			return fmt.Errorf("%w (got %d)", ErrInvalidParallelism, n)
		}
		e.parallelism = n
		return nil
	}
}

// WithRateLimit caps search calls at qps per second with the given burst.
func WithRateLimit(qps float64, burst int) Option {
	return func(e *Evaluator) error {
		if qps <= 0 || burst < 1 {
			return ErrInvalidRateLimit
		}
		e.limiter = rate.NewLimiter(rate.Limit(qps), burst)
		return nil
	}
}

// WithMonitor installs sweep hooks.
func WithMonitor(m Monitor) Option {
	return func(e *Evaluator) error {
		if m == nil {
			m = &noopMonitor{}
		}
		e.monitor = m
		return nil
	}
}

// WithMetrics publishes per-query latency and per-cell accuracy.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Evaluator) error {
		e.recorder = r
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEvaluator creates an evaluator for the given collection.
func NewEvaluator(collection vectordb.Collection, opts ...Option) (*Evaluator, error) {
	if collection == nil {
		return nil, ErrCollectionRequired
	}

	e := &Evaluator{
		collection:  collection,
		parallelism: 1,
		monitor:     &noopMonitor{},
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "evaluator", "collection", collection.Name())

	return e, nil
}

// EvaluateCell runs every query with params.
//
// A query counts as found when any returned hit's text equals the query's
// expected text. Failed search calls are counted in Errors and excluded from
// the latency statistics; when every call fails the first error is returned
// along with the partial result.
func (e *Evaluator) EvaluateCell(ctx context.Context, queries []Query, params core.SearchParams) (core.CellResult, error) {
	if err := core.ValidateSearchParams(params); err != nil {
		return core.CellResult{}, err
	}
	if len(queries) == 0 {
		return core.CellResult{}, ErrNoQueries
	}

	e.monitor.StartCell(params, len(queries))

	var (
		found     = make([]bool, len(queries))
		latencies = make([]time.Duration, len(queries))
		errs      = make([]error, len(queries))
	)

	g := new(errgroup.Group)
	g.SetLimit(e.parallelism)

	for i, q := range queries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if e.limiter != nil {
				if err := e.limiter.Wait(ctx); err != nil {
					return err
				}
			}

			start := time.Now()
			hits, err := e.collection.Search(ctx, q.Vector, params)
			latency := time.Since(start)

			e.recorder.ObserveSearch(params, latency, err)
			if err != nil {
				errs[i] = err
				e.monitor.QueryDone(params, false, latency, err)
				return nil
			}

			latencies[i] = latency
			found[i] = containsText(hits, q.ExpectedText)
			e.monitor.QueryDone(params, found[i], latency, nil)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return core.CellResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.CellResult{}, err
	}

	result := core.CellResult{
		Params:  params,
		Queries: len(queries),
	}
	var (
		firstErr error
		ok       = make([]time.Duration, 0, len(queries))
	)
	for i := range queries {
		if errs[i] != nil {
			result.Errors++
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		ok = append(ok, latencies[i])
		if found[i] {
			result.Found++
		}
	}
	result.Accuracy = float64(result.Found) / float64(result.Queries)

	summary := summarize(ok)
	result.MeanLatency = summary.Mean
	result.P50Latency = summary.P50
	result.P95Latency = summary.P95
	result.P99Latency = summary.P99
	result.MaxLatency = summary.Max

	e.recorder.SetAccuracy(params, result.Accuracy)
	e.monitor.FinishCell(result)

	if result.Errors > 0 {
		e.logger.Warn("search errors in cell", "params", params.String(), "errors", result.Errors, "first_error", firstErr)
	}
	if result.Errors == result.Queries {
		return result, fmt.Errorf("%w (%s): %w", ErrAllQueriesFailed, params, firstErr)
	}

	e.logger.Debug("cell evaluated",
		"params", params.String(),
		"accuracy", result.Accuracy,
		"mean_latency", result.MeanLatency)
	return result, nil
}

// Sweep evaluates every cell of grid in order: oversampling outermost, then
// rescore, then limit. It stops at the first cell that fails entirely or
// when ctx is done, returning the cells completed so far.
func (e *Evaluator) Sweep(ctx context.Context, queries []Query, grid core.Grid) ([]core.CellResult, error) {
	if err := core.ValidateGrid(grid); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}

	cells := grid.Cells()
	results := make([]core.CellResult, 0, len(cells))
	start := time.Now()

	for _, params := range cells {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := e.EvaluateCell(ctx, queries, params)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	e.logger.Info("sweep finished", "cells", len(results), "queries", len(queries), "duration", time.Since(start))
	return results, nil
}
