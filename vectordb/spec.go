package vectordb

import (
	"fmt"
	"strings"
)

// Distance is the similarity function used by a collection.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceDot       Distance = "dot"
	DistanceEuclidean Distance = "euclid"
)

// ParseDistance parses a distance name, case-insensitively.
func ParseDistance(s string) (Distance, error) {
	switch Distance(strings.ToLower(strings.TrimSpace(s))) {
	case DistanceCosine:
		return DistanceCosine, nil
	case DistanceDot:
		return DistanceDot, nil
	case DistanceEuclidean, "euclidean", "l2":
		return DistanceEuclidean, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDistance, s)
	}
}

// CollectionSpec describes how to create a binary-quantized collection.
type CollectionSpec struct {
	Dimension int
	Distance  Distance

	// OnDisk keeps original vectors on disk; only the quantized copy stays in RAM.
	OnDisk bool

	// AlwaysRAM pins the binary-quantized vectors in memory.
	AlwaysRAM bool

	Shards        uint32
	SegmentNumber uint64

	// IndexingThreshold at creation time. Zero disables indexing so that a
	// bulk upload is not slowed down by incremental index builds.
	IndexingThreshold uint64

	// Recreate drops an existing collection before creating it.
	Recreate bool
}

// DefaultCollectionSpec returns the settings used for binary quantization
// benchmarks with 1536-dimensional OpenAI embeddings.
func DefaultCollectionSpec() CollectionSpec {
	return CollectionSpec{
		Dimension:         1536,
		Distance:          DistanceCosine,
		OnDisk:            true,
		AlwaysRAM:         true,
		Shards:            2,
		SegmentNumber:     5,
		IndexingThreshold: 0,
	}
}

// Validate checks that the spec can be sent to a service.
func (s CollectionSpec) Validate() error {
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be greater than 0 (got %d)", ErrInvalidSpec, s.Dimension)
	}
	if _, err := ParseDistance(string(s.Distance)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	return nil
}
