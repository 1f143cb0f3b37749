package notifications

import (
	"encoding/json"
	"time"

	"clipress/internal/queue"
)

// EventType enumerates engine events.
type EventType string

const (
	EventQueued    EventType = "queued"
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
)

// Event is one observation of a job's lifecycle.
type Event struct {
	Type       EventType     `json:"type"`
	JobID      string        `json:"job_id"`
	UserID     string        `json:"user_id"`
	SourceName string        `json:"source_name,omitempty"`
	Status     queue.Status  `json:"status"`
	Progress   int           `json:"progress"`
	Result     *queue.Result `json:"result,omitempty"`
	Location   string        `json:"location,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	Time       time.Time     `json:"time"`
}

// Terminal reports whether the event closes the job's stream.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventCompleted, EventFailed, EventCancelled:
		return true
	}
	return false
}

// Encode renders the event as JSON.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// TerminalEventType maps a terminal job status to its event type.
func TerminalEventType(status queue.Status) EventType {
	switch status {
	case queue.StatusCompleted:
		return EventCompleted
	case queue.StatusCancelled:
		return EventCancelled
	default:
		return EventFailed
	}
}
