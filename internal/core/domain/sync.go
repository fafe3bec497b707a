package domain

import (
	"strings"
	"time"
)

// DefaultStateTTL is how long a user's sync state survives without a save.
const DefaultStateTTL = 15 * 24 * time.Hour

// UserSyncState holds the resumption cursors for one user.
// A cursor is present for a calendar only after a walk for that calendar
// completed successfully.
type UserSyncState struct {
	// UserID is the owning user.
	UserID string

	// CalendarCursors maps calendar ID to the provider sync token.
	CalendarCursors map[string]string

	// LastSync is when the state was last written.
	LastSync time.Time

	// ExpiresAfter is the time-to-live from LastSync.
	ExpiresAfter time.Duration
}

// NewUserSyncState returns an empty state for a user.
func NewUserSyncState(userID string) *UserSyncState {
	return &UserSyncState{
		UserID:          userID,
		CalendarCursors: make(map[string]string),
		ExpiresAfter:    DefaultStateTTL,
	}
}

// Cursor returns the stored cursor for a calendar, or "" if the calendar
// was never synced.
func (s *UserSyncState) Cursor(calendarID string) string {
	if s == nil || s.CalendarCursors == nil {
		return ""
	}
	return s.CalendarCursors[calendarID]
}

// ExpiresAt returns when the state may be garbage-collected.
func (s *UserSyncState) ExpiresAt() time.Time {
	ttl := s.ExpiresAfter
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return s.LastSync.Add(ttl)
}

// Expired reports whether the state has outlived its TTL at now.
func (s *UserSyncState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt())
}

// SyncOutcome classifies how one calendar's sync ended.
type SyncOutcome string

const (
	// OutcomeOK means the walk completed and the new cursor may be adopted.
	OutcomeOK SyncOutcome = "OK"
	// OutcomeCursorInvalid means the cursor was rejected and the full-sync
	// fallback was exhausted.
	OutcomeCursorInvalid SyncOutcome = "CURSOR_INVALID"
	// OutcomeTransientError covers network errors, rate limiting, 5xx responses
	// and walks cut short by the page bound.
	OutcomeTransientError SyncOutcome = "TRANSIENT_ERROR"
	// OutcomeFatalError covers auth failures and unclassified errors.
	OutcomeFatalError SyncOutcome = "FATAL_ERROR"
)

// CalendarSyncResult is the ephemeral result of syncing one calendar.
type CalendarSyncResult struct {
	// CalendarID is the calendar that was synced.
	CalendarID string

	// PreviousCursor is the cursor the walk started from.
	PreviousCursor string

	// NewCursor is the cursor from the final page. Empty unless Outcome is OK.
	NewCursor string

	// Changes are the collected change records in provider order.
	Changes []ChangeRecord

	// Outcome classifies how the walk ended.
	Outcome SyncOutcome

	// Pages is the number of pages fetched, across fallbacks.
	Pages int

	// FullSync is set when the walk ended in window mode.
	FullSync bool

	// Err is the error that ended the walk, if any.
	Err error
}

// OK reports whether the walk completed.
func (r *CalendarSyncResult) OK() bool {
	return r.Outcome == OutcomeOK
}

// ChangeKind distinguishes upserts from deletes.
type ChangeKind string

const (
	ChangeUpserted ChangeKind = "UPSERTED"
	ChangeDeleted  ChangeKind = "DELETED"
)

// Event kind names used when dispatching change records to a sink.
const (
	EventKindUpdated = "syncEventUpdated"
	EventKindDeleted = "syncEventDeleted"

	// EventKindDisconnected is sent on the sink's companion channel when a
	// user's credentials are removed.
	EventKindDisconnected = "userDisconnected"
)

// EventKind returns the sink event name for the change kind.
func (k ChangeKind) EventKind() string {
	if k == ChangeDeleted {
		return EventKindDeleted
	}
	return EventKindUpdated
}

// ChangeRecord is one item-level delta.
type ChangeRecord struct {
	Kind       ChangeKind `json:"kind"`
	CalendarID string     `json:"calendarId"`
	ItemID     string     `json:"itemId"`
	Event      Event      `json:"event"`
}

// StatusCancelled is the provider status of a removed item.
const StatusCancelled = "cancelled"

// ClassifyChange builds the change record for an event.
// A cancelled status (any case) is a delete, anything else an upsert.
func ClassifyChange(calendarID string, e Event) ChangeRecord {
	kind := ChangeUpserted
	if strings.EqualFold(strings.TrimSpace(e.Status), StatusCancelled) {
		kind = ChangeDeleted
	}
	return ChangeRecord{
		Kind:       kind,
		CalendarID: calendarID,
		ItemID:     e.ID,
		Event:      e,
	}
}

var (
	keyEscaper   = strings.NewReplacer("%", "%25", ".", "%2E", "$", "%24")
	keyUnescaper = strings.NewReplacer("%2E", ".", "%24", "$", "%25", "%")
)

// CalendarKey maps a calendar ID to a storage key free of '.' and '$'.
// The mapping is percent-style escaping, so it is injective.
func CalendarKey(calendarID string) string {
	return keyEscaper.Replace(calendarID)
}

// CalendarIDFromKey reverses CalendarKey.
func CalendarIDFromKey(key string) string {
	return keyUnescaper.Replace(key)
}
