package domain

import "time"

// EventType names a change published on the log change feed.
type EventType string

const (
	EventLogCreated      EventType = "log.created"
	EventLogsDeleted     EventType = "logs.deleted"
	EventActivityCreated EventType = "activity.created"
)

// Event describes a successful write against the store.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Log        *LogEntry `json:"log,omitempty"`
	IDs        []string  `json:"ids,omitempty"`
	Deleted    int       `json:"deleted,omitempty"`
	Activity   string    `json:"activity,omitempty"`
}

// Key returns the partition key for the event.
func (e Event) Key() string {
	switch {
	case e.Log != nil:
		return e.Log.ID
	case e.Activity != "":
		return e.Activity
	}
	return string(e.Type)
}
