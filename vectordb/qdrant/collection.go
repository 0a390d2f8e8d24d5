package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/vectordb"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 6334

	defaultPollInterval = time.Second
)

// Config holds connection settings for a Qdrant server.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// DefaultConfig returns a config for a local Qdrant on the default gRPC port.
func DefaultConfig() Config {
	return Config{Host: DefaultHost, Port: DefaultPort}
}

// Collection is a vectordb.Collection backed by a Qdrant server.
type Collection struct {
	client *pb.Client
	name   string
	logger *slog.Logger

	// dimension is learned on Create and used to reject malformed upserts early.
	dimension atomic.Int64
}

// Option configures a Collection.
type Option func(*Collection) error

// WithLogger sets a custom logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collection) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithDimension sets the expected vector dimension for an existing collection.
func WithDimension(dim int) Option {
	return func(c *Collection) error {
		if dim <= 0 {
			return fmt.Errorf("%w: dimension must be greater than 0", vectordb.ErrInvalidSpec)
		}
		c.dimension.Store(int64(dim))
		return nil
	}
}

// New connects to Qdrant and returns a handle on the named collection.
// The collection itself is not created; call Create for that.
func New(cfg Config, name string, opts ...Option) (*Collection, error) {
	if name == "" {
		return nil, vectordb.ErrEmptyCollectionName
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	c := &Collection{
		name:   name,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	c.logger = c.logger.With("component", "qdrant", "collection", name)

	client, err := pb.NewClient(&pb.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	c.client = client
	return c, nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Create creates the collection with binary quantization.
func (c *Collection) Create(ctx context.Context, spec vectordb.CollectionSpec) error {
	req, err := toCreateCollection(c.name, spec)
	if err != nil {
		return err
	}

	exists, err := c.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		if !spec.Recreate {
			return fmt.Errorf("%w: %s", vectordb.ErrCollectionExists, c.name)
		}
		c.logger.Info("dropping existing collection")
		if err := c.client.DeleteCollection(ctx, c.name); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", c.name, err)
		}
	}

	if err := c.client.CreateCollection(ctx, req); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.name, err)
	}
	c.dimension.Store(int64(spec.Dimension))

	c.logger.Info("collection created",
		"dimension", spec.Dimension,
		"distance", spec.Distance,
		"shards", spec.Shards,
		"segments", spec.SegmentNumber,
		"on_disk", spec.OnDisk,
		"always_ram", spec.AlwaysRAM)
	return nil
}

// Exists reports whether the collection exists.
func (c *Collection) Exists(ctx context.Context) (bool, error) {
	exists, err := c.client.CollectionExists(ctx, c.name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", c.name, err)
	}
	return exists, nil
}

// Drop deletes the collection if it exists.
func (c *Collection) Drop(ctx context.Context) error {
	exists, err := c.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := c.client.DeleteCollection(ctx, c.name); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", c.name, err)
	}
	c.logger.Info("collection dropped")
	return nil
}

// Upsert writes records and waits for the write to be applied.
func (c *Collection) Upsert(ctx context.Context, records []*core.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := checkDimension(records, int(c.dimension.Load())); err != nil {
		return err
	}

	_, err := c.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.name,
		Wait:           pb.PtrOf(true),
		Points:         toPoints(records),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(records), err)
	}
	return nil
}

// Search runs a query with the given quantization parameters.
func (c *Collection) Search(ctx context.Context, vector []float32, params core.SearchParams) ([]core.Hit, error) {
	if err := core.ValidateSearchParams(params); err != nil {
		return nil, err
	}
	if dim := int(c.dimension.Load()); dim > 0 && len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			vectordb.ErrDimensionMismatch, len(vector), dim)
	}

	points, err := c.client.Query(ctx, &pb.QueryPoints{
		CollectionName: c.name,
		Query:          pb.NewQuery(vector...),
		Limit:          pb.PtrOf(uint64(params.Limit)),
		Params:         toSearchParams(params),
		WithPayload:    pb.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", c.name, err)
	}
	return fromScored(points), nil
}

// Count returns the exact number of points.
func (c *Collection) Count(ctx context.Context) (uint64, error) {
	n, err := c.client.Count(ctx, &pb.CountPoints{
		CollectionName: c.name,
		Exact:          pb.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points in %s: %w", c.name, err)
	}
	return n, nil
}

// EnableIndexing sets the optimizer indexing threshold.
func (c *Collection) EnableIndexing(ctx context.Context, threshold uint64) error {
	err := c.client.UpdateCollection(ctx, &pb.UpdateCollection{
		CollectionName: c.name,
		OptimizersConfig: &pb.OptimizersConfigDiff{
			IndexingThreshold: pb.PtrOf(threshold),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update indexing threshold of %s: %w", c.name, err)
	}
	c.logger.Info("indexing enabled", "threshold", threshold)
	return nil
}

// WaitReady polls the collection status until it is green.
func (c *Collection) WaitReady(ctx context.Context, poll time.Duration) error {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	start := time.Now()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		info, err := c.client.GetCollectionInfo(ctx, c.name)
		if err != nil {
			return fmt.Errorf("failed to get collection info for %s: %w", c.name, err)
		}
		if info.GetStatus() == pb.CollectionStatus_Green {
			c.logger.Info("collection ready",
				"points", info.GetPointsCount(),
				"indexed_vectors", info.GetIndexedVectorsCount(),
				"waited", time.Since(start))
			return nil
		}
		c.logger.Debug("waiting for collection", "status", info.GetStatus().String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// IsRetryable reports whether err is a transient gRPC failure.
func (c *Collection) IsRetryable(err error) bool {
	return IsRetryable(err)
}

// Close closes the gRPC connection.
func (c *Collection) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// IsRetryable reports whether err carries a gRPC status worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

var (
	_ vectordb.Collection      = (*Collection)(nil)
	_ vectordb.RetryClassifier = (*Collection)(nil)
)
