package models

import "time"

// Event is a domain event raised by a Task aggregate. Events accumulate
// on the task and are drained with TakeEvents.
type Event interface {
	// EventName returns a stable identifier for the event kind.
	EventName() string
	// OccurredAt returns when the event was raised.
	OccurredAt() time.Time
}

// TaskCreated is raised once when a task is created through the factory.
type TaskCreated struct {
	TaskID    TaskID
	Title     string
	CreatedAt time.Time
	At        time.Time
}

func (e TaskCreated) EventName() string     { return "task_created" }
func (e TaskCreated) OccurredAt() time.Time { return e.At }

// TaskUpdated is raised for every named mutation of a task field.
type TaskUpdated struct {
	TaskID    TaskID
	FieldName string
	OldValue  string
	NewValue  string
	UpdatedAt time.Time
	At        time.Time
}

func (e TaskUpdated) EventName() string     { return "task_updated" }
func (e TaskUpdated) OccurredAt() time.Time { return e.At }

// TaskRetrieved is raised when a task is handed to an external consumer,
// so collaborators such as the rule-file generator can react.
type TaskRetrieved struct {
	TaskID      TaskID
	TaskData    map[string]any
	RetrievedAt time.Time
	At          time.Time
}

func (e TaskRetrieved) EventName() string     { return "task_retrieved" }
func (e TaskRetrieved) OccurredAt() time.Time { return e.At }

// TaskDeleted is raised when a task is marked deleted. The aggregate keeps
// no removal logic beyond the event.
type TaskDeleted struct {
	TaskID    TaskID
	Title     string
	DeletedAt time.Time
	At        time.Time
}

func (e TaskDeleted) EventName() string     { return "task_deleted" }
func (e TaskDeleted) OccurredAt() time.Time { return e.At }
