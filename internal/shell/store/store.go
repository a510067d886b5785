package store

import (
	"context"

	"github.com/shipward/shipward/internal/core/pipeline"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store is the run journal. Every pipeline execution is recorded here;
// journal writes are best-effort and never decide the pipeline outcome.
type Store interface {
	// CreateRun records the start of a pipeline run.
	CreateRun(ctx context.Context, run *pipeline.Run) error

	// FinishRun records the terminal outcome of a run.
	FinishRun(ctx context.Context, run *pipeline.Run) error

	// GetRun fetches a run by ID.
	GetRun(ctx context.Context, id string) (*pipeline.Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]pipeline.Run, error)

	// Close releases the underlying connection.
	Close() error
}
