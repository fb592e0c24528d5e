package types

import "time"

// EventType enumerates the kinds of lifecycle event recorded against a job.
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeStarted  EventType = "started"
	EventTypeProgress EventType = "progress"
	EventTypeCompleted EventType = "completed"
	EventTypeFailed   EventType = "failed"
	EventTypeCancelled EventType = "cancelled"
	EventTypeWarning  EventType = "warning"
)

// IsValid reports whether t is one of the declared event types.
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeCreated, EventTypeStarted, EventTypeProgress, EventTypeCompleted,
		EventTypeFailed, EventTypeCancelled, EventTypeWarning:
		return true
	}
	return false
}

// EventLevel is the severity of a JobEvent.
type EventLevel string

const (
	LevelDebug EventLevel = "debug"
	LevelInfo  EventLevel = "info"
	LevelWarn  EventLevel = "warn"
	LevelError EventLevel = "error"
)

// IsValid reports whether l is one of the declared event levels.
func (l EventLevel) IsValid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// JobEvent is one append-only entry in a job's timeline.
type JobEvent struct {
	ID        int64
	JobID     string
	EventType EventType
	Message   *string
	Level     EventLevel
	Data      string
	Metadata  string
	CreatedAt time.Time
}

// CreateEventRequest is the input contract for appending a JobEvent.
// Level defaults to LevelInfo when empty.
type CreateEventRequest struct {
	JobID     string
	EventType EventType
	Message   *string
	Level     EventLevel
	Data      string
	Metadata  string
}

// TimelineEntry is the oldest-first projection returned by GetJobTimeline.
type TimelineEntry struct {
	Timestamp time.Time
	Event     EventType
	Message   *string
	Level     EventLevel
	Data      string
}

// EventFilter is the set of predicates accepted by EventRepository queries.
type EventFilter struct {
	JobID         *string
	EventType     *EventType
	Level         *EventLevel
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
