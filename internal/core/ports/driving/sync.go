package driving

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// UserSynchronizer syncs every calendar of one user.
// Scheduled and on-demand callers share this entry point.
type UserSynchronizer interface {
	// SyncUser runs one incremental sync for the user and returns the
	// change records in calendar listing order.
	SyncUser(ctx context.Context, userID string) ([]domain.ChangeRecord, error)
}

// CalendarSyncer syncs a single calendar on demand.
type CalendarSyncer interface {
	// CalendarSync syncs one calendar from the given cursor.
	// An empty cursor starts a full sync.
	CalendarSync(ctx context.Context, userID, calendarID, cursor string) (*domain.CalendarSyncResult, error)

	// LegacyEventsSync is CalendarSync in the older map-shaped response:
	// calendarId, result ("ok" or "error"), events and queryToken.
	LegacyEventsSync(ctx context.Context, userID, calendarID, queryToken string) map[string]any
}
