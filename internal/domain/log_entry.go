package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for filtering and summaries.
const DateLayout = "2006-01-02"

// LogEntry is one timed interval recorded for an activity.
type LogEntry struct {
	ID        string     `json:"id"`
	Activity  string     `json:"activity"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Running reports whether the entry has no end yet.
func (e LogEntry) Running() bool { return e.End == nil }

// Duration returns end - start. Running entries are measured up to now.
func (e LogEntry) Duration(now time.Time) time.Duration {
	end := now
	if e.End != nil {
		end = *e.End
	}
	if end.Before(e.Start) {
		return 0
	}
	return end.Sub(e.Start)
}

// OnDay reports whether the entry started on the given calendar day in loc.
func (e LogEntry) OnDay(day string, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	return e.Start.In(loc).Format(DateLayout) == day
}

// ActivityDefinition is a selectable activity name.
type ActivityDefinition struct {
	Name string `json:"name"`
}

// NewLogEntry validates the fields of a completed interval.
func NewLogEntry(activity string, start, end time.Time) (LogEntry, error) {
	activity = strings.TrimSpace(activity)
	if activity == "" {
		return LogEntry{}, fmt.Errorf("%w: activity is required", ErrValidation)
	}
	if start.IsZero() {
		return LogEntry{}, fmt.Errorf("%w: start is required", ErrValidation)
	}
	if end.IsZero() {
		return LogEntry{}, fmt.Errorf("%w: end is required", ErrValidation)
	}
	if end.Before(start) {
		return LogEntry{}, fmt.Errorf("%w: end must not be before start", ErrValidation)
	}
	e := end.UTC()
	return LogEntry{Activity: activity, Start: start.UTC(), End: &e}, nil
}

// TruncateToMicros returns e with Start and End in UTC at microsecond
// precision, the resolution of the SQL timestamp columns.
func TruncateToMicros(e LogEntry) LogEntry {
	e.Start = e.Start.UTC().Truncate(time.Microsecond)
	if e.End != nil {
		end := e.End.UTC().Truncate(time.Microsecond)
		e.End = &end
	}
	return e
}

// NormalizeActivityName trims a name and rejects it when empty.
func NormalizeActivityName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: activity name is required", ErrValidation)
	}
	return name, nil
}

// ParseDay validates a YYYY-MM-DD calendar day. Empty input is allowed.
func ParseDay(day string) (string, error) {
	day = strings.TrimSpace(day)
	if day == "" {
		return "", nil
	}
	if _, err := time.Parse(DateLayout, day); err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return day, nil
}

// localLayouts are accepted when a timestamp carries no offset, as sent by
// datetime-local form inputs.
var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// ParseTimestamp reads an ISO-8601 timestamp. Values without an offset are
// interpreted in loc.
func ParseTimestamp(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s must be an ISO-8601 timestamp", ErrValidation, field)
}
