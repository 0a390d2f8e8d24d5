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

package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/metrics"
	"github.com/afg1/bqeval/vectordb"
)

const (
	DefaultBatchSize         = 256
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 500 * time.Millisecond
	DefaultIndexingThreshold = 20000
	DefaultPollInterval      = time.Second
	progressInterval         = 1000
)

// Source yields batches of records. *dataset.Reader satisfies it.
type Source interface {
	ForEach(ctx context.Context, batchSize int, fn func([]*core.Record) error) error
}

// Stats summarizes an upload run.
type Stats struct {
	Points        int
	Batches       int
	FailedBatches int
	Retries       int
	Duration      time.Duration
}

// Uploader writes a dataset into a collection using a worker pool.
type Uploader struct {
	collection vectordb.Collection
	pool       *ants.Pool

	batchSize  int
	maxRetries int
	retryDelay time.Duration

	enableIndexing    bool
	indexingThreshold uint64
	waitReady         bool
	pollInterval      time.Duration

	progress      io.Writer
	progressTotal int

	recorder *metrics.Recorder
	logger   *slog.Logger
}

// Option configures an Uploader.
type Option func(*Uploader) error

// WithPoolSize sets the number of concurrent upload workers.
// Default is runtime.NumCPU() / 2, with a minimum of 1. A size below 1 keeps
// the default.
func WithPoolSize(size int) Option {
	return func(u *Uploader) error {
		if size < 1 {
			return nil
		}
		if u.pool != nil {
			u.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		u.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of points per upsert call.
func WithBatchSize(size int) Option {
	return func(u *Uploader) error {
		if size < 1 {
			return fmt.Errorf("batch size must be greater than 0 (got %d)", size)
		}
		u.batchSize = size
		return nil
	}
}

// WithRetry sets the retry policy for each batch.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(u *Uploader) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		u.maxRetries = maxAttempts
		u.retryDelay = baseDelay
		return nil
	}
}

// WithIndexing re-enables indexing at threshold once all batches are uploaded.
// Pass 0 to leave the collection's indexing settings untouched.
func WithIndexing(threshold uint64) Option {
	return func(u *Uploader) error {
		u.enableIndexing = threshold > 0
		u.indexingThreshold = threshold
		return nil
	}
}

// WithWaitReady controls whether Run blocks until the collection is optimized.
func WithWaitReady(wait bool, poll time.Duration) Option {
	return func(u *Uploader) error {
		u.waitReady = wait
		if poll > 0 {
			u.pollInterval = poll
		}
		return nil
	}
}

// WithProgress reports progress to w. total may be 0 when unknown.
func WithProgress(w io.Writer, total int) Option {
	return func(u *Uploader) error {
		u.progress = w
		u.progressTotal = total
		return nil
	}
}

// WithMetrics records uploaded points, retries and failures.
func WithMetrics(r *metrics.Recorder) Option {
	return func(u *Uploader) error {
		u.recorder = r
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) error {
		if logger == nil {
			logger = slog.Default()
		}
		u.logger = logger
		return nil
	}
}

// NewUploader creates an uploader for the given collection.
func NewUploader(collection vectordb.Collection, opts ...Option) (*Uploader, error) {
	if collection == nil {
		return nil, ErrCollectionRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	u := &Uploader{
		collection:        collection,
		pool:              pool,
		batchSize:         DefaultBatchSize,
		maxRetries:        DefaultMaxRetries,
		retryDelay:        DefaultRetryDelay,
		enableIndexing:    true,
		indexingThreshold: DefaultIndexingThreshold,
		waitReady:         true,
		pollInterval:      DefaultPollInterval,
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(u); optErr != nil {
			u.Release()
			return nil, optErr
		}
	}
	u.logger = u.logger.With("component", "uploader", "collection", collection.Name())

	return u, nil
}

// Release stops the worker pool. The uploader cannot be used afterwards.
func (u *Uploader) Release() {
	if u.pool != nil {
		u.pool.Release()
	}
}

// Run uploads every batch from src. Batch failures do not stop the run; they
// are collected and returned together, wrapped in ErrUploadFailed, after all
// submitted batches finished. Indexing is re-enabled and readiness awaited
// only when every batch succeeded.
func (u *Uploader) Run(ctx context.Context, src Source) (Stats, error) {
	if src == nil {
		return Stats{}, ErrSourceRequired
	}

	start := time.Now()
	var tracker *ProgressTracker
	if u.progress != nil {
		tracker = NewProgressTracker(u.progress, u.progressTotal, progressInterval)
		tracker.Start()
	}

	retryable := func(error) bool { return true }
	if rc, ok := u.collection.(vectordb.RetryClassifier); ok {
		retryable = rc.IsRetryable
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		stats Stats
		errs  *multierror.Error
	)

	uploadBatch := func(index int, batch []*core.Record) {
		defer wg.Done()

		attempts := 0
		err := validateBatch(batch)
		if err == nil {
			err = RetryIf(ctx, func() error {
				attempts++
				return u.collection.Upsert(ctx, batch)
			}, retryable, u.maxRetries, u.retryDelay)
		}

		mu.Lock()
		defer mu.Unlock()
		if attempts > 1 {
			stats.Retries += attempts - 1
			for i := 1; i < attempts; i++ {
				u.recorder.IncRetry()
			}
		}
		if err != nil {
			stats.FailedBatches++
			errs = multierror.Append(errs, fmt.Errorf("batch %d (%d points): %w", index, len(batch), err))
			u.recorder.IncFailedBatch()
			u.logger.Warn("batch failed", "batch", index, "points", len(batch), "attempts", attempts, "error", err)
			return
		}
		stats.Points += len(batch)
		u.recorder.AddUploaded(len(batch))
		if tracker != nil {
			tracker.Increment(len(batch))
		}
	}

	batches := 0
	readErr := src.ForEach(ctx, u.batchSize, func(batch []*core.Record) error {
		index := batches
		batches++
		wg.Add(1)
		if err := u.pool.Submit(func() { uploadBatch(index, batch) }); err != nil {
			wg.Done()
			return fmt.Errorf("failed to submit batch %d: %w", index, err)
		}
		return nil
	})
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}
	stats.Batches = batches
	stats.Duration = time.Since(start)

	u.logger.Info("upload finished",
		"points", stats.Points,
		"batches", stats.Batches,
		"failed_batches", stats.FailedBatches,
		"retries", stats.Retries,
		"duration", stats.Duration)

	if readErr != nil {
		if errs != nil {
			return stats, fmt.Errorf("failed to read dataset: %w (also %w)", readErr, errs.ErrorOrNil())
		}
		return stats, fmt.Errorf("failed to read dataset: %w", readErr)
	}
	if errs != nil {
		return stats, fmt.Errorf("%w: %w", ErrUploadFailed, errs.ErrorOrNil())
	}

	if u.enableIndexing {
		if err := u.collection.EnableIndexing(ctx, u.indexingThreshold); err != nil {
			return stats, err
		}
	}
	if u.waitReady {
		if err := u.collection.WaitReady(ctx, u.pollInterval); err != nil {
			return stats, fmt.Errorf("collection did not become ready: %w", err)
		}
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

func validateBatch(batch []*core.Record) error {
	for _, r := range batch {
		if err := core.ValidateRecord(r); err != nil {
			return err
		}
	}
	return nil
}
