package driving

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// Scheduler runs background polling cycles.
type Scheduler interface {
	// Start begins running cycles.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops polling after the current cycle.
	Stop() error

	// RunCycle runs one cycle immediately and returns its summary.
	RunCycle(ctx context.Context) domain.CycleResult

	// History returns recent cycle results, most recent first.
	History(ctx context.Context, limit int) ([]domain.CycleResult, error)
}
