package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
)

// Ensure SyncFacade implements the interface.
var _ driving.CalendarSyncer = (*SyncFacade)(nil)

// Legacy response fields.
const (
	LegacyKeyCalendarID = "calendarId"
	LegacyKeyResult     = "result"
	LegacyKeyEvents     = "events"
	LegacyKeyQueryToken = "queryToken"
	LegacyKeyError      = "error"

	LegacyResultOK    = "ok"
	LegacyResultError = "error"
)

// SyncFacade exposes single-calendar sync in both call shapes on top of
// one engine.
type SyncFacade struct {
	engine *SyncService
}

// NewSyncFacade creates a facade over the sync engine.
func NewSyncFacade(engine *SyncService) *SyncFacade {
	return &SyncFacade{engine: engine}
}

// CalendarSync syncs one calendar from cursor and returns the typed result.
// A calendar-level failure is reported through the result, not the error.
func (f *SyncFacade) CalendarSync(ctx context.Context, userID, calendarID, cursor string) (*domain.CalendarSyncResult, error) {
	if userID == "" || calendarID == "" {
		return nil, fmt.Errorf("%w: user and calendar are required", domain.ErrInvalidInput)
	}
	return f.engine.SyncCalendar(ctx, userID, calendarID, cursor)
}

// LegacyEventsSync is CalendarSync translated to the map-shaped response.
// Events are the flattened event fields tagged with the change kind.
func (f *SyncFacade) LegacyEventsSync(ctx context.Context, userID, calendarID, queryToken string) map[string]any {
	out := map[string]any{
		LegacyKeyCalendarID: calendarID,
		LegacyKeyQueryToken: queryToken,
		LegacyKeyEvents:     []map[string]any{},
	}

	result, err := f.CalendarSync(ctx, userID, calendarID, queryToken)
	if err == nil && !result.OK() {
		err = result.Err
		if err == nil {
			err = errors.New(string(result.Outcome))
		}
	}
	if err != nil {
		out[LegacyKeyResult] = LegacyResultError
		out[LegacyKeyError] = err.Error()
		return out
	}

	events := make([]map[string]any, 0, len(result.Changes))
	for _, rec := range result.Changes {
		fields := rec.Event.Fields()
		fields["kind"] = rec.Kind.EventKind()
		events = append(events, fields)
	}

	out[LegacyKeyResult] = LegacyResultOK
	out[LegacyKeyEvents] = events
	if result.NewCursor != "" {
		out[LegacyKeyQueryToken] = result.NewCursor
	}
	return out
}
