package models

// Priority represents how urgent a task is.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityUrgent   Priority = "urgent"
	PriorityCritical Priority = "critical"
)

// priorityOrder gives the total ordering of priorities, lowest first.
var priorityOrder = map[Priority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityUrgent:   4,
	PriorityCritical: 5,
}

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	_, ok := priorityOrder[p]
	return ok
}

// Order returns the numeric rank of the priority (low=1 .. critical=5).
// Unknown priorities rank as 0, below low.
func (p Priority) Order() int { return priorityOrder[p] }

// Less reports whether p ranks strictly below other.
func (p Priority) Less(other Priority) bool { return p.Order() < other.Order() }

// IsCritical reports whether the priority is critical.
func (p Priority) IsCritical() bool { return p == PriorityCritical }

// IsHighOrCritical reports whether the priority ranks at or above high.
func (p Priority) IsHighOrCritical() bool { return p.Order() >= priorityOrder[PriorityHigh] }
