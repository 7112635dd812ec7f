package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// Event is a calendar entry on the planned day.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// TimeRange formats the event's time span as "15:04-15:04", or "all day".
func (e Event) TimeRange() string {
	if e.AllDay {
		return "all day"
	}
	return e.Start.Format("15:04") + "-" + e.End.Format("15:04")
}

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DayRange returns the calendar day containing day, from midnight to the
// following midnight in loc. Both bounds are computed as wall clock times so
// days with a DST switch are 23 or 25 hours long.
func DayRange(day time.Time, loc *time.Location) DateRange {
	if loc == nil {
		loc = day.Location()
	}
	y, m, d := day.In(loc).Date()
	return DateRange{
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, d+1, 0, 0, 0, 0, loc),
	}
}

// toEvent converts a Google Calendar event. Timed events are expressed in
// loc; all-day dates are interpreted as midnight in loc.
func toEvent(event *calendar.Event, loc *time.Location) Event {
	if event == nil {
		return Event{}
	}

	ev := Event{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
	}

	if event.Start != nil {
		ev.Start, ev.AllDay = parseEventTime(event.Start, loc)
	}
	if event.End != nil {
		ev.End, _ = parseEventTime(event.End, loc)
	}

	return ev
}

func parseEventTime(dt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t.In(loc), false
		}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", dt.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
