package domain

import (
	"strings"
	"time"
)

// Event is a normalised calendar item.
//
// Timed and all-day items share one shape: Start and End are always set.
// StartDate and EndDate (YYYY-MM-DD) are set only for all-day items.
// Provider fields with no named counterpart land in Extra.
type Event struct {
	ID               string         `json:"id"`
	CalendarID       string         `json:"calendarId"`
	Status           string         `json:"status,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	Description      string         `json:"description,omitempty"`
	Location         string         `json:"location,omitempty"`
	HTMLLink         string         `json:"htmlLink,omitempty"`
	RecurringEventID string         `json:"recurringEventId,omitempty"`
	Organizer        string         `json:"organizer,omitempty"`
	Attendees        []string       `json:"attendees,omitempty"`
	Start            time.Time      `json:"start"`
	End              time.Time      `json:"end"`
	StartDate        string         `json:"startDate,omitempty"`
	EndDate          string         `json:"endDate,omitempty"`
	AllDay           bool           `json:"allDay,omitempty"`
	Created          time.Time      `json:"created,omitempty"`
	Updated          time.Time      `json:"updated,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// Fields flattens the event into a single map, named fields first and Extra
// entries after. Named fields win on key clashes.
func (e *Event) Fields() map[string]any {
	out := make(map[string]any, len(e.Extra)+16)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["id"] = e.ID
	out["calendarId"] = e.CalendarID
	out["status"] = e.Status
	out["summary"] = e.Summary
	out["start"] = e.Start
	out["end"] = e.End
	if e.AllDay {
		out["startDate"] = e.StartDate
		out["endDate"] = e.EndDate
	}
	if e.Description != "" {
		out["description"] = e.Description
	}
	if e.Location != "" {
		out["location"] = e.Location
	}
	if e.HTMLLink != "" {
		out["htmlLink"] = e.HTMLLink
	}
	if e.RecurringEventID != "" {
		out["recurringEventId"] = e.RecurringEventID
	}
	if e.Organizer != "" {
		out["organizer"] = e.Organizer
	}
	if len(e.Attendees) > 0 {
		out["attendees"] = e.Attendees
	}
	if !e.Created.IsZero() {
		out["created"] = e.Created
	}
	if !e.Updated.IsZero() {
		out["updated"] = e.Updated
	}
	return out
}

// Calendar is one entry of a user's calendar list.
type Calendar struct {
	ID      string
	Summary string
	Primary bool
}

// EventQuery selects one page of events.
// Cursor mode when Cursor is set; window mode otherwise.
type EventQuery struct {
	// Cursor is the provider sync token for incremental queries.
	Cursor string
	// TimeMin bounds window-mode queries. Ignored in cursor mode.
	TimeMin time.Time
	// TimeMax bounds window-mode queries. Zero means open-ended.
	TimeMax time.Time
	// PageToken continues a walk. Empty for the first page.
	PageToken string
	// PageSize caps the number of items per page.
	PageSize int
}

// IncrementalMode reports whether the query runs against a cursor.
func (q EventQuery) IncrementalMode() bool {
	return q.Cursor != ""
}

// EventPage is one page of a list walk.
type EventPage struct {
	// Items are the normalised events on this page.
	Items []Event
	// NextPageToken is empty on the final page.
	NextPageToken string
	// NextCursor is set only on the final page.
	NextCursor string
}

// LastPage reports whether no further pages follow.
// A blank page token counts as absent.
func (p *EventPage) LastPage() bool {
	return strings.TrimSpace(p.NextPageToken) == ""
}
