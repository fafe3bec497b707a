package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// CalendarProvider is one user's view of the calendar provider API.
// Every call is a single bounded request.
type CalendarProvider interface {
	// ListCalendars returns the user's calendars in provider listing order.
	// Implementations walk every page of the calendar list.
	ListCalendars(ctx context.Context) ([]domain.Calendar, error)

	// ListEvents fetches one page of events for a calendar.
	// Errors wrap domain sentinels: ErrCursorInvalid, ErrAuthInvalid,
	// ErrRateLimited or ErrTransient. Anything else is unclassified.
	ListEvents(ctx context.Context, calendarID string, query domain.EventQuery) (*domain.EventPage, error)
}

// ProviderFactory builds a CalendarProvider bound to one user's credential.
type ProviderFactory interface {
	// ForUser returns a provider authorised with cred.
	ForUser(ctx context.Context, cred *domain.Credential) (CalendarProvider, error)
}
