package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// CycleStore persists polling cycle history for diagnostics.
type CycleStore interface {
	// RecordCycle logs a cycle result.
	RecordCycle(ctx context.Context, result *domain.CycleResult) error

	// ListCycles returns recent results, most recent first.
	ListCycles(ctx context.Context, limit int) ([]domain.CycleResult, error)

	// PruneHistory keeps only the most recent 'keep' results.
	PruneHistory(ctx context.Context, keep int) error
}
