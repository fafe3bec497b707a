package driving

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// AccountService manages connected users and their sync state.
type AccountService interface {
	// Connect stores tokens obtained out of band for a user, creating the
	// user if needed. Extra fields are merged alongside the tokens.
	Connect(ctx context.Context, userID string, token domain.Token, extra map[string]string) error

	// Get returns the user's configuration.
	Get(ctx context.Context, userID string) (domain.UserConfig, error)

	// List returns all connected user IDs.
	List(ctx context.Context) ([]string, error)

	// Remove deletes a user's configuration and sync state.
	Remove(ctx context.Context, userID string) error

	// State returns the user's sync state, or nil if none is stored.
	State(ctx context.Context, userID string) (*domain.UserSyncState, error)

	// ResetState discards the user's cursors so the next sync is a full one.
	ResetState(ctx context.Context, userID string) error
}
