package models

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusTodo indicates the task has not started.
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusReview indicates the work is awaiting review.
	TaskStatusReview TaskStatus = "review"
	// TaskStatusTesting indicates the work is being tested.
	TaskStatusTesting TaskStatus = "testing"
	// TaskStatusDone indicates the task completed. Terminal.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusCancelled indicates the task was abandoned. Can only reopen to todo.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// statusTransitions is the full transition table of the task state machine.
// done has no outgoing transitions; cancelled can only be reopened.
var statusTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusTodo:       {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusBlocked, TaskStatusReview, TaskStatusTesting, TaskStatusCancelled},
	TaskStatusBlocked:    {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusReview:     {TaskStatusInProgress, TaskStatusTesting, TaskStatusDone, TaskStatusCancelled},
	TaskStatusTesting:    {TaskStatusInProgress, TaskStatusReview, TaskStatusDone, TaskStatusCancelled},
	TaskStatusDone:       {},
	TaskStatusCancelled:  {TaskStatusTodo},
}

// AllTaskStatuses returns every status in lifecycle order.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusTodo,
		TaskStatusInProgress,
		TaskStatusBlocked,
		TaskStatusReview,
		TaskStatusTesting,
		TaskStatusDone,
		TaskStatusCancelled,
	}
}

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine permits moving to target.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	for _, t := range statusTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTodo reports whether the status is todo.
func (s TaskStatus) IsTodo() bool { return s == TaskStatusTodo }

// IsInProgress reports whether the status is in_progress.
func (s TaskStatus) IsInProgress() bool { return s == TaskStatusInProgress }

// IsDone reports whether the status is done.
func (s TaskStatus) IsDone() bool { return s == TaskStatusDone }

// IsTerminal reports whether no work remains: done or cancelled.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDone || s == TaskStatusCancelled
}
