package storage

import (
	"context"

	"github.com/afg1/bqeval/core"
)

// RunRepository persists finished sweeps so they can be compared later.
// Implementations must be thread-safe and support concurrent access.
type RunRepository interface {
	// SaveRun stores a run, replacing any existing run with the same ID.
	// Returns ErrInvalidRun if the run has no ID.
	SaveRun(ctx context.Context, run *core.Run) error

	// GetRun retrieves a single run by ID.
	// Returns ErrNotFound if the run doesn't exist.
	GetRun(ctx context.Context, id string) (*core.Run, error)

	// ListRuns retrieves up to limit runs ordered by StartedAt, most recent first.
	// A limit <= 0 returns every run.
	ListRuns(ctx context.Context, limit int) ([]*core.Run, error)

	// DeleteRun removes a run by ID.
	// Returns ErrNotFound if the run doesn't exist.
	DeleteRun(ctx context.Context, id string) error

	// Close releases resources held by the repository.
	Close() error
}
