package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// SyncStateStore persists per-user sync cursors.
// It is the only owner of cursors across cycles.
type SyncStateStore interface {
	// Load retrieves sync state for a user.
	// Returns nil and no error if there is no state or it has expired.
	Load(ctx context.Context, userID string) (*domain.UserSyncState, error)

	// Save stores or replaces a user's sync state.
	// The time-to-live is refreshed on every save.
	Save(ctx context.Context, state *domain.UserSyncState) error

	// Delete removes sync state for a user.
	Delete(ctx context.Context, userID string) error

	// PurgeExpired removes states whose TTL has passed.
	// Returns the number of states removed.
	PurgeExpired(ctx context.Context) (int, error)
}
