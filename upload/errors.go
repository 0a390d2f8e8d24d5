package upload

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrCollectionRequired is returned when no collection is given.
	ErrCollectionRequired = errors.New("collection is required")

	// ErrSourceRequired is returned when Run is called without a source.
	ErrSourceRequired = errors.New("record source is required")

	// ErrUploadFailed wraps the aggregated batch failures of a run.
	ErrUploadFailed = errors.New("upload failed")
)
