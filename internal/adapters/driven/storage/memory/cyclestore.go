package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure CycleStore implements the interface.
var _ driven.CycleStore = (*CycleStore)(nil)

// CycleStore is an in-memory implementation of driven.CycleStore.
type CycleStore struct {
	mu      sync.RWMutex
	results []domain.CycleResult
}

// NewCycleStore creates a new in-memory cycle store.
func NewCycleStore() *CycleStore {
	return &CycleStore{}
}

// RecordCycle logs a cycle result.
func (s *CycleStore) RecordCycle(_ context.Context, result *domain.CycleResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, *result)
	return nil
}

// ListCycles returns recent results, most recent first.
func (s *CycleStore) ListCycles(_ context.Context, limit int) ([]domain.CycleResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CycleResult, 0, len(s.results))
	for i := len(s.results) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.results[i])
	}
	return out, nil
}

// PruneHistory keeps only the most recent 'keep' results.
func (s *CycleStore) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep >= 0 && len(s.results) > keep {
		s.results = append([]domain.CycleResult(nil), s.results[len(s.results)-keep:]...)
	}
	return nil
}
