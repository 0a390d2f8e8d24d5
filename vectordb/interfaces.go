package vectordb

import (
	"context"
	"time"

	"github.com/afg1/bqeval/core"
)

// Collection is a single named collection on a vector-search service.
// Implementations must be thread-safe for concurrent use.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Create creates the collection with binary quantization enabled.
	// Returns ErrCollectionExists if it already exists and spec.Recreate is false.
	// With spec.Recreate an existing collection is dropped first.
	Create(ctx context.Context, spec CollectionSpec) error

	// Exists reports whether the collection exists on the service.
	Exists(ctx context.Context) (bool, error)

	// Drop deletes the collection. Dropping a missing collection is not an error.
	Drop(ctx context.Context) error

	// Upsert writes records and waits until the service acknowledged them.
	Upsert(ctx context.Context, records []*core.Record) error

	// Search runs a quantized nearest-neighbor query.
	// Results are ordered by score, best first, and hold at most params.Limit hits.
	Search(ctx context.Context, vector []float32, params core.SearchParams) ([]core.Hit, error)

	// Count returns the exact number of points in the collection.
	Count(ctx context.Context) (uint64, error)

	// EnableIndexing sets the optimizer indexing threshold, typically after a
	// bulk upload performed with indexing disabled.
	EnableIndexing(ctx context.Context, threshold uint64) error

	// WaitReady blocks until the collection reports it is fully optimized,
	// polling every poll interval, or until ctx is done.
	WaitReady(ctx context.Context, poll time.Duration) error

	// Close releases the connection to the service.
	Close() error
}

// RetryClassifier is implemented by collections that can tell transient
// service errors apart from permanent ones.
type RetryClassifier interface {
	IsRetryable(err error) bool
}
