// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bqeval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/afg1/bqeval/ai"
	"github.com/afg1/bqeval/config"
	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/eval"
	"github.com/afg1/bqeval/metrics"
	"github.com/afg1/bqeval/noise"
	"github.com/afg1/bqeval/storage"
	"github.com/afg1/bqeval/storage/badger"
	"github.com/afg1/bqeval/upload"
	"github.com/afg1/bqeval/vectordb"
)

// LabelStatus marks runs whose sweep stopped before the last cell.
const LabelStatus = "status"

var (
	// ErrConfigRequired is returned when the harness is built without configuration.
	ErrConfigRequired = errors.New("config is required")

	// ErrCollectionRequired is returned when the harness is built without a collection.
	ErrCollectionRequired = errors.New("collection is required")

	// ErrEmbedderRequired is returned by Probe without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)

// QuerySource yields the dataset rows sweeps draw their queries from.
type QuerySource interface {
	Sample(ctx context.Context, n int) ([]*core.Record, error)
	Name() string
}

// Harness ties a collection, its run history and the sweep configuration together.
type Harness struct {
	cfg        *config.Config
	collection vectordb.Collection
	runs       storage.RunRepository
	backend    *badger.Backend // set only when the harness opened the run store itself
	recorder   *metrics.Recorder
	progress   io.Writer
	labels     map[string]string
	logger     *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness) error

// WithRunRepository stores runs in repo instead of the badger database at
// cfg.DBPath. The caller keeps ownership of repo.
func WithRunRepository(repo storage.RunRepository) Option {
	return func(h *Harness) error {
		h.runs = repo
		return nil
	}
}

// WithMetrics publishes upload and search metrics to r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(h *Harness) error {
		h.recorder = r
		return nil
	}
}

// WithProgress writes upload progress and per-cell summaries to w.
func WithProgress(w io.Writer) Option {
	return func(h *Harness) error {
		h.progress = w
		return nil
	}
}

// WithLabels attaches labels to every run the harness records.
func WithLabels(labels map[string]string) Option {
	return func(h *Harness) error {
		h.labels = maps.Clone(labels)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) error {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
		return nil
	}
}

// NewHarness creates a harness over collection. Unless WithRunRepository is
// given, runs are kept in a badger database at cfg.DBPath, opened when a
// sweep first needs it.
func NewHarness(cfg *config.Config, collection vectordb.Collection, opts ...Option) (*Harness, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if collection == nil {
		return nil, ErrCollectionRequired
	}

	h := &Harness{
		cfg:        cfg,
		collection: collection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	h.logger = h.logger.With("component", "harness", "collection", collection.Name())

	return h, nil
}

// Runs returns the run repository, opening the badger database at
// cfg.DBPath on first use.
func (h *Harness) Runs() (storage.RunRepository, error) {
	if h.runs != nil {
		return h.runs, nil
	}

	backend, err := badger.OpenBackend(h.cfg.DBPath, false)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	runs, err := badger.NewRunRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	h.backend = backend
	h.runs = runs
	return runs, nil
}

// Collection returns the collection under test.
func (h *Harness) Collection() vectordb.Collection {
	return h.collection
}

// Load creates the collection with binary quantization and indexing
// disabled, uploads src, then re-enables indexing and waits until the
// collection is ready.
func (h *Harness) Load(ctx context.Context, src upload.Source) (upload.Stats, error) {
	spec := h.cfg.CollectionSpec()
	if err := h.collection.Create(ctx, spec); err != nil {
		return upload.Stats{}, fmt.Errorf("create collection: %w", err)
	}
	h.logger.Info("collection created",
		"dimension", spec.Dimension,
		"distance", spec.Distance,
		"shards", spec.Shards,
		"segments", spec.SegmentNumber)

	up := h.cfg.Upload
	opts := []upload.Option{
		upload.WithPoolSize(up.Workers),
		upload.WithBatchSize(up.BatchSize),
		upload.WithRetry(up.MaxRetries, up.RetryDelay),
		upload.WithIndexing(up.IndexingThreshold),
		upload.WithWaitReady(up.WaitReady, up.PollInterval),
		upload.WithMetrics(h.recorder),
		upload.WithLogger(h.logger),
	}
	if h.progress != nil {
		opts = append(opts, upload.WithProgress(h.progress, h.cfg.Dataset.Limit))
	}

	uploader, err := upload.NewUploader(h.collection, opts...)
	if err != nil {
		return upload.Stats{}, err
	}
	defer uploader.Release()

	return uploader.Run(ctx, src)
}

// Sweep samples the first cfg.Sweep.Queries rows of src, perturbs them and
// evaluates the configured grid. The run is saved when at least one cell
// completed; a sweep that stopped early is saved with status "incomplete"
// and returned together with the error.
func (h *Harness) Sweep(ctx context.Context, src QuerySource) (*core.Run, error) {
	sc := h.cfg.Sweep

	runs, err := h.Runs()
	if err != nil {
		return nil, err
	}

	records, err := src.Sample(ctx, sc.Queries)
	if err != nil {
		return nil, fmt.Errorf("sample queries: %w", err)
	}
	perturber, err := noise.NewPerturber(sc.Seed, sc.NoiseStdDev)
	if err != nil {
		return nil, err
	}
	queries, err := eval.PrepareQueries(records, perturber)
	if err != nil {
		return nil, err
	}

	grid := h.cfg.Grid()
	opts := []eval.Option{
		eval.WithParallelism(sc.Parallelism),
		eval.WithMetrics(h.recorder),
		eval.WithLogger(h.logger),
	}
	if sc.RateLimit > 0 {
		opts = append(opts, eval.WithRateLimit(sc.RateLimit, max(sc.Burst, 1)))
	}
	if h.progress != nil {
		opts = append(opts, eval.WithMonitor(eval.NewWriterMonitor(h.progress, grid.Size())))
	}
	evaluator, err := eval.NewEvaluator(h.collection, opts...)
	if err != nil {
		return nil, err
	}

	run := &core.Run{
		ID:          uuid.NewString(),
		Collection:  h.collection.Name(),
		Dataset:     src.Name(),
		Seed:        sc.Seed,
		NoiseStdDev: sc.NoiseStdDev,
		QueryCount:  len(queries),
		StartedAt:   time.Now().UTC(),
		Labels:      maps.Clone(h.labels),
	}

	h.logger.Info("sweep started", "run", run.ID, "queries", len(queries), "cells", grid.Size())
	cells, sweepErr := evaluator.Sweep(ctx, queries, grid)
	run.FinishedAt = time.Now().UTC()
	run.Cells = cells

	if sweepErr != nil {
		if len(cells) == 0 {
			return nil, sweepErr
		}
		if run.Labels == nil {
			run.Labels = make(map[string]string)
		}
		run.Labels[LabelStatus] = "incomplete"
	}

	// Saving uses a fresh context so an interrupted sweep still keeps its cells.
	if err := runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return run, errors.Join(sweepErr, fmt.Errorf("save run: %w", err))
	}
	h.logger.Info("run saved", "run", run.ID, "cells", len(cells), "duration", run.Duration())

	return run, sweepErr
}

// Probe embeds text and searches the collection with params.
func (h *Harness) Probe(ctx context.Context, embedder ai.Embedder, text string, params core.SearchParams) ([]core.Hit, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if err := core.ValidateSearchParams(params); err != nil {
		return nil, err
	}

	vector, err := embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return h.collection.Search(ctx, vector, params)
}

// Drop deletes the collection.
func (h *Harness) Drop(ctx context.Context) error {
	return h.collection.Drop(ctx)
}

// Close releases the run store if the harness opened it, and the collection.
func (h *Harness) Close() error {
	var errs []error
	if h.backend != nil {
		if err := h.runs.Close(); err != nil {
			h.logger.Error("error closing run repository", "err", err)
			errs = append(errs, err)
		}
		if err := h.backend.Close(); err != nil {
			h.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	if err := h.collection.Close(); err != nil {
		h.logger.Error("error closing collection", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
