package google

import (
	"context"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarReadonlyScope is the only scope the connector needs.
const CalendarReadonlyScope = calendar.CalendarReadonlyScope

// NewCalendarService creates a Google Calendar API service using the provided
// TokenSource. Extra options (endpoint, HTTP client) are applied after it.
func NewCalendarService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*calendar.Service, error) {
	all := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	return calendar.NewService(ctx, all...)
}
