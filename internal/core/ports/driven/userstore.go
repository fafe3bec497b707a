package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// UserStore is the calendar data store: user ID to an opaque field map.
// The set of stored users is the registry the poller iterates.
type UserStore interface {
	// Get retrieves a user's configuration.
	// Returns domain.ErrNotFound if the user is unknown.
	Get(ctx context.Context, userID string) (domain.UserConfig, error)

	// Merge writes the given fields into the user's configuration,
	// creating it if needed. Fields not present in fields are untouched.
	Merge(ctx context.Context, userID string, fields domain.UserConfig) error

	// Delete removes the user's configuration.
	Delete(ctx context.Context, userID string) error

	// List returns all known user IDs in a stable order.
	List(ctx context.Context) ([]string, error)
}
