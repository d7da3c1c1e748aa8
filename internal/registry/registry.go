package registry

import (
	"context"
	"time"
)

// FactorRepository defines persistence operations over named factor
// definitions.
type FactorRepository interface {
	// Create stores a new factor definition under name. The expression
	// must already have been validated by factor.Parse by the caller —
	// this repository does not parse.
	Create(ctx context.Context, name, expression, description string) (*FactorDefinition, error)

	// GetByName retrieves a factor definition by its unique name.
	GetByName(ctx context.Context, name string) (*FactorDefinition, error)

	// List returns all stored factor definitions, most recently updated
	// first.
	List(ctx context.Context) ([]*FactorDefinition, error)

	// Delete removes a factor definition by name.
	Delete(ctx context.Context, name string) error
}

// RunRepository defines persistence operations over replay run history.
type RunRepository interface {
	// StartRun records the start of a new replay run.
	StartRun(ctx context.Context, runID string, factorCount, batchCount int) (*ReplayRun, error)

	// CompleteRun marks a run completed or failed, recording the number
	// of factors that ended up permanently failed and where (if
	// anywhere) the output was archived.
	CompleteRun(ctx context.Context, runID string, failedCount int, storageKey string, errSummary string) error

	// GetRun retrieves a run by its run ID.
	GetRun(ctx context.Context, runID string) (*ReplayRun, error)

	// ListRuns returns recent runs, most recent first, limited to limit
	// rows (0 means no limit).
	ListRuns(ctx context.Context, limit int) ([]*ReplayRun, error)
}

// completedAt is a small helper so CompleteRun callers don't each need
// to spell out time.Now's pointer-of-local-var dance. Timestamps are
// the one ambient-clock exception to this repo's otherwise pure core —
// the engine package itself never calls time.Now.
func completedAt() *time.Time {
	t := time.Now()
	return &t
}
