package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// cycleStore implements driven.CycleStore.
type cycleStore struct {
	store *Store
}

var _ driven.CycleStore = (*cycleStore)(nil)

// RecordCycle logs a cycle result.
func (s *cycleStore) RecordCycle(ctx context.Context, result *domain.CycleResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cycle_results (cycle, started_at, ended_at, users, records, failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.Cycle,
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.EndedAt.UTC().Format(time.RFC3339Nano),
		result.Users,
		result.Records,
		result.Failures,
		nullString(result.Error))

	if err != nil {
		return fmt.Errorf("recording cycle result: %w", err)
	}
	return nil
}

// ListCycles returns recent results, most recent first.
// A non-positive limit returns the whole history.
func (s *cycleStore) ListCycles(ctx context.Context, limit int) ([]domain.CycleResult, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT cycle, started_at, ended_at, users, records, failures, error
		FROM cycle_results
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycle history: %w", err)
	}
	defer rows.Close()

	var results []domain.CycleResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanCycleResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycle history: %w", err)
	}

	return results, nil
}

// PruneHistory removes results beyond the retention limit.
func (s *cycleStore) PruneHistory(ctx context.Context, keep int) error {
	if keep < 0 {
		return nil
	}
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM cycle_results
		WHERE id NOT IN (
			SELECT id FROM cycle_results ORDER BY id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning cycle history: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanCycleResult scans a cycle result from *sql.Rows.
func scanCycleResult(rows *sql.Rows) (*domain.CycleResult, error) {
	var result domain.CycleResult
	var startedAt, endedAt string
	var errMsg sql.NullString

	if err := rows.Scan(&result.Cycle, &startedAt, &endedAt,
		&result.Users, &result.Records, &result.Failures, &errMsg); err != nil {
		return nil, fmt.Errorf("scanning cycle result: %w", err)
	}

	result.StartedAt = parseTime(startedAt)
	result.EndedAt = parseTime(endedAt)
	if errMsg.Valid {
		result.Error = errMsg.String
	}

	return &result, nil
}

// parseTime parses an RFC3339 string, returning zero time if invalid.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
