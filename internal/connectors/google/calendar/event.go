package calendar

import (
	"encoding/json"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

const dateLayout = "2006-01-02"

// knownFields are the provider keys mapped onto named domain.Event fields.
// Everything else lands in Event.Extra.
var knownFields = []string{
	"id", "status", "summary", "description", "location", "htmlLink",
	"recurringEventId", "organizer", "attendees", "start", "end",
	"created", "updated",
}

// NormaliseEvent converts a Google Calendar event to a domain.Event.
//
// Timed events keep their offset. All-day events become midnight-to-midnight
// in the event's time zone (UTC if none), with StartDate and EndDate set.
func NormaliseEvent(event *calendar.Event, calendarID string) domain.Event {
	out := domain.Event{
		ID:               event.Id,
		CalendarID:       calendarID,
		Status:           event.Status,
		Summary:          event.Summary,
		Description:      event.Description,
		Location:         event.Location,
		HTMLLink:         event.HtmlLink,
		RecurringEventID: event.RecurringEventId,
		Organizer:        getOrganiserEmail(event),
		Attendees:        attendeeEmails(event.Attendees),
		Created:          parseTimestamp(event.Created),
		Updated:          parseTimestamp(event.Updated),
		Extra:            extraFields(event),
	}

	out.Start, out.StartDate = eventTime(event.Start)
	out.End, out.EndDate = eventTime(event.End)
	out.AllDay = out.StartDate != ""

	return out
}

// eventTime returns the instant of an event boundary and, for all-day
// boundaries, the date string.
func eventTime(dt *calendar.EventDateTime) (time.Time, string) {
	if dt == nil {
		return time.Time{}, ""
	}
	if dt.DateTime != "" {
		return parseTimestamp(dt.DateTime), ""
	}
	if dt.Date == "" {
		return time.Time{}, ""
	}

	loc := time.UTC
	if dt.TimeZone != "" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(dateLayout, dt.Date, loc)
	if err != nil {
		return time.Time{}, dt.Date
	}
	return t, dt.Date
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// extraFields returns the provider fields that have no named counterpart.
func extraFields(event *calendar.Event) map[string]any {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	for _, key := range knownFields {
		delete(fields, key)
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// getOrganiserEmail extracts the organiser email from an event.
func getOrganiserEmail(event *calendar.Event) string {
	if event.Organizer != nil { //nolint:misspell // Google API field name
		return event.Organizer.Email //nolint:misspell // Google API field name
	}
	return ""
}

func attendeeEmails(attendees []*calendar.EventAttendee) []string {
	if len(attendees) == 0 {
		return nil
	}
	out := make([]string, 0, len(attendees))
	for _, a := range attendees {
		if a.Email != "" {
			out = append(out, a.Email)
		}
	}
	return out
}
