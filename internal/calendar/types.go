package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

const (
	dateLayout = "2006-01-02"

	// NoTitle is used for events that carry no summary.
	NoTitle = "No Title"
)

// EventInput represents the input for creating a calendar event
type EventInput struct {
	Summary  string
	Start    time.Time
	End      time.Time
	TimeZone string // IANA zone label stored on the event, e.g. "Asia/Kolkata"
}

// Event represents a calendar event as read from or written to the calendar
type Event struct {
	ID       string
	Summary  string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Status   string
	HTMLLink string
}

// Title returns the event summary, or NoTitle when it is empty.
func (e Event) Title() string {
	if e.Summary == "" {
		return NoTitle
	}
	return e.Summary
}

// toEvent converts a Google Calendar event to an Event.
// Date-only (all-day) boundaries are interpreted as midnight in loc.
func toEvent(event *calendar.Event, loc *time.Location) Event {
	if event == nil {
		return Event{}
	}

	e := Event{
		ID:       event.Id,
		Summary:  event.Summary,
		Status:   event.Status,
		HTMLLink: event.HtmlLink,
	}

	var allDay bool
	e.Start, allDay = parseEventTime(event.Start, loc)
	e.End, _ = parseEventTime(event.End, loc)
	e.AllDay = allDay

	return e
}

// parseEventTime reads either the DateTime or the Date field. The boolean
// result reports whether the value was date-only.
func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t, false
		}
		return time.Time{}, false
	}
	if edt.Date != "" {
		if t, err := time.ParseInLocation(dateLayout, edt.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
