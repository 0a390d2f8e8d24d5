package dataset

import "errors"

var (
	// ErrMissingField is returned when a row lacks the text or vector field.
	ErrMissingField = errors.New("missing field")

	// ErrDimensionMismatch is returned when a row's vector length differs
	// from the expected dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrMalformedRow is returned when a row cannot be decoded.
	ErrMalformedRow = errors.New("malformed row")

	// ErrInvalidBatchSize is returned when batchSize is <= 0.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")
)
