package vectordb

import "errors"

var (
	// ErrCollectionExists is returned by Create when the collection already exists.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrCollectionNotFound is returned when an operation targets a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidSpec is returned when a CollectionSpec fails validation.
	ErrInvalidSpec = errors.New("invalid collection spec")

	// ErrUnknownDistance is returned for an unsupported distance name.
	ErrUnknownDistance = errors.New("unknown distance")

	// ErrEmptyCollectionName is returned when a collection has no name.
	ErrEmptyCollectionName = errors.New("collection name is required")

	// ErrDimensionMismatch is returned when a vector does not fit the collection.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
