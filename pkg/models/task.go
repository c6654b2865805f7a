package models

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// maxTitleLen and maxDescriptionLen bound the free-text fields of a task.
const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// Subtask is a lightweight work item nested inside a Task. Subtask IDs are
// hierarchical (parent ID plus a dotted 3-digit sequence).
type Subtask struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Completed   bool     `json:"completed"`
	Assignees   []string `json:"assignees"`
}

// SubtaskProgress summarizes subtask completion for a task.
type SubtaskProgress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percentage float64 `json:"percentage"`
}

// Task is the aggregate root of the work model. All mutations go through
// named methods that bump UpdatedAt and append exactly one domain event.
type Task struct {
	ID              TaskID          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Status          TaskStatus      `json:"status"`
	Priority        Priority        `json:"priority"`
	Details         string          `json:"details"`
	EstimatedEffort EstimatedEffort `json:"estimated_effort"`
	Assignees       []string        `json:"assignees"`
	Labels          []string        `json:"labels"`
	Dependencies    []TaskID        `json:"dependencies"`
	Subtasks        []Subtask       `json:"subtasks"`
	DueDate         string          `json:"due_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// eventsMu guards the outbox so TakeEvents is an atomic take-and-clear.
	eventsMu sync.Mutex
	events   []Event
}

// NewTask creates a task with validated fields, todo status and medium
// priority, and raises a TaskCreated event.
func NewTask(id TaskID, title, description string) (*Task, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &Task{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      TaskStatusTodo,
		Priority:    PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.record(TaskCreated{TaskID: id, Title: title, CreatedAt: now, At: now})
	return t, nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	if len(title) > maxTitleLen {
		return fmt.Errorf("task title cannot exceed %d characters", maxTitleLen)
	}
	return nil
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("task description cannot be empty")
	}
	if len(description) > maxDescriptionLen {
		return fmt.Errorf("task description cannot exceed %d characters", maxDescriptionLen)
	}
	return nil
}

func (t *Task) record(e Event) {
	t.eventsMu.Lock()
	t.events = append(t.events, e)
	t.eventsMu.Unlock()
}

func (t *Task) recordUpdate(field, oldValue, newValue string) {
	t.UpdatedAt = time.Now()
	t.record(TaskUpdated{
		TaskID:    t.ID,
		FieldName: field,
		OldValue:  oldValue,
		NewValue:  newValue,
		UpdatedAt: t.UpdatedAt,
		At:        t.UpdatedAt,
	})
}

// TakeEvents returns all pending domain events and clears the outbox.
func (t *Task) TakeEvents() []Event {
	t.eventsMu.Lock()
	defer t.eventsMu.Unlock()
	events := t.events
	t.events = nil
	return events
}

// UpdateStatus moves the task through the status state machine, rejecting
// transitions the table does not allow.
func (t *Task) UpdateStatus(target TaskStatus) error {
	if !target.Valid() {
		return fmt.Errorf("invalid task status %q", target)
	}
	if !t.Status.CanTransitionTo(target) {
		return fmt.Errorf("cannot transition from %s to %s", t.Status, target)
	}
	old := t.Status
	t.Status = target
	t.recordUpdate("status", string(old), string(target))
	return nil
}

// UpdatePriority sets a new priority.
func (t *Task) UpdatePriority(p Priority) error {
	if !p.Valid() {
		return fmt.Errorf("invalid priority %q", p)
	}
	old := t.Priority
	t.Priority = p
	t.recordUpdate("priority", string(old), string(p))
	return nil
}

// UpdateTitle sets a new title.
func (t *Task) UpdateTitle(title string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	old := t.Title
	t.Title = title
	t.recordUpdate("title", old, title)
	return nil
}

// UpdateDescription sets a new description.
func (t *Task) UpdateDescription(description string) error {
	if err := validateDescription(description); err != nil {
		return err
	}
	old := t.Description
	t.Description = description
	t.recordUpdate("description", old, description)
	return nil
}

// UpdateDetails sets the free-form details text.
func (t *Task) UpdateDetails(details string) {
	old := t.Details
	t.Details = details
	t.recordUpdate("details", old, details)
}

// UpdateEstimatedEffort sets the effort label, falling back to medium for
// unrecognized labels.
func (t *Task) UpdateEstimatedEffort(effort EstimatedEffort) {
	if !effort.Valid() {
		effort = EffortMedium
	}
	old := t.EstimatedEffort
	t.EstimatedEffort = effort
	t.recordUpdate("estimated_effort", string(old), string(effort))
}

// UpdateDueDate sets or clears the due date (ISO 8601 string).
func (t *Task) UpdateDueDate(dueDate string) {
	old := t.DueDate
	t.DueDate = dueDate
	t.recordUpdate("due_date", old, dueDate)
}

// EffortLevel returns the coarse effort bucket for the task.
func (t *Task) EffortLevel() string { return t.EstimatedEffort.Level() }

// SuggestedLabels returns label suggestions derived from the task's
// title and description plus optional extra context.
func (t *Task) SuggestedLabels(context string) []string {
	return SuggestLabels(t.Title + " " + t.Description + " " + context)
}

// normalizeAssignee trims an assignee and enforces the "@role" form.
func normalizeAssignee(assignee string) string {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return ""
	}
	if !strings.HasPrefix(assignee, "@") {
		assignee = "@" + assignee
	}
	return assignee
}

// UpdateAssignees replaces the assignee list, normalizing each entry and
// suppressing duplicates.
func (t *Task) UpdateAssignees(assignees []string) {
	old := strings.Join(t.Assignees, ",")
	var normalized []string
	seen := make(map[string]bool)
	for _, a := range assignees {
		a = normalizeAssignee(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		normalized = append(normalized, a)
	}
	t.Assignees = normalized
	t.recordUpdate("assignees", old, strings.Join(normalized, ","))
}

// AddAssignee appends one assignee if not already present.
func (t *Task) AddAssignee(assignee string) {
	assignee = normalizeAssignee(assignee)
	if assignee == "" || t.HasAssignee(assignee) {
		return
	}
	t.Assignees = append(t.Assignees, assignee)
	t.recordUpdate("assignees", "assignee_added", assignee)
}

// RemoveAssignee removes one assignee if present.
func (t *Task) RemoveAssignee(assignee string) {
	for i, a := range t.Assignees {
		if a == assignee {
			t.Assignees = append(t.Assignees[:i], t.Assignees[i+1:]...)
			t.recordUpdate("assignees", "assignee_removed", assignee)
			return
		}
	}
}

// HasAssignee reports whether the task lists the given assignee.
func (t *Task) HasAssignee(assignee string) bool {
	for _, a := range t.Assignees {
		if a == assignee {
			return true
		}
	}
	return false
}

// PrimaryAssignee returns the first assignee, or "" when unassigned.
func (t *Task) PrimaryAssignee() string {
	if len(t.Assignees) == 0 {
		return ""
	}
	return t.Assignees[0]
}

// UpdateLabels replaces the label list, suppressing duplicates.
func (t *Task) UpdateLabels(labels []string) {
	old := strings.Join(t.Labels, ",")
	var deduped []string
	seen := make(map[string]bool)
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		deduped = append(deduped, l)
	}
	t.Labels = deduped
	t.recordUpdate("labels", old, strings.Join(deduped, ","))
}

// AddLabel appends one label if not already present.
func (t *Task) AddLabel(label string) {
	if label == "" {
		return
	}
	for _, l := range t.Labels {
		if l == label {
			return
		}
	}
	t.Labels = append(t.Labels, label)
	t.recordUpdate("labels", "label_added", label)
}

// RemoveLabel removes one label if present.
func (t *Task) RemoveLabel(label string) {
	for i, l := range t.Labels {
		if l == label {
			t.Labels = append(t.Labels[:i], t.Labels[i+1:]...)
			t.recordUpdate("labels", "label_removed", label)
			return
		}
	}
}

// AddDependency records that this task is blocked by another. Depending
// on itself is forbidden; duplicates are suppressed.
func (t *Task) AddDependency(dep TaskID) error {
	if dep == t.ID {
		return fmt.Errorf("task %s cannot depend on itself", t.ID)
	}
	if t.HasDependency(dep) {
		return nil
	}
	t.Dependencies = append(t.Dependencies, dep)
	t.recordUpdate("dependencies", "dependency_added", dep.String())
	return nil
}

// RemoveDependency removes a dependency if present.
func (t *Task) RemoveDependency(dep TaskID) {
	for i, d := range t.Dependencies {
		if d == dep {
			t.Dependencies = append(t.Dependencies[:i], t.Dependencies[i+1:]...)
			t.recordUpdate("dependencies", "dependency_removed", dep.String())
			return
		}
	}
}

// HasDependency reports whether the task depends on dep.
func (t *Task) HasDependency(dep TaskID) bool {
	for _, d := range t.Dependencies {
		if d == dep {
			return true
		}
	}
	return false
}

// HasCircularDependency reports whether adding dep would make the task
// depend on itself. Cycles spanning several tasks are caught by the
// dependency graph when a tree is built.
func (t *Task) HasCircularDependency(dep TaskID) bool {
	return dep == t.ID
}

// ClearDependencies removes all dependencies.
func (t *Task) ClearDependencies() {
	if len(t.Dependencies) == 0 {
		return
	}
	t.Dependencies = nil
	t.recordUpdate("dependencies", "dependencies_cleared", "")
}

// AddSubtask appends a subtask with a generated hierarchical ID.
func (t *Task) AddSubtask(title, description string, assignees []string) (Subtask, error) {
	if strings.TrimSpace(title) == "" {
		return Subtask{}, fmt.Errorf("subtask must have a title")
	}

	existing := make([]string, 0, len(t.Subtasks))
	for _, st := range t.Subtasks {
		existing = append(existing, st.ID)
	}
	id, err := GenerateSubtaskID(t.ID, existing)
	if err != nil {
		return Subtask{}, err
	}

	var normalized []string
	for _, a := range assignees {
		if a = normalizeAssignee(a); a != "" {
			normalized = append(normalized, a)
		}
	}

	st := Subtask{
		ID:          id.String(),
		Title:       title,
		Description: description,
		Assignees:   normalized,
	}
	t.Subtasks = append(t.Subtasks, st)
	t.recordUpdate("subtasks", "subtask_added", st.ID)
	return st, nil
}

// GetSubtask returns the subtask with the given ID.
func (t *Task) GetSubtask(subtaskID string) (Subtask, bool) {
	for _, st := range t.Subtasks {
		if st.ID == subtaskID {
			return st, true
		}
	}
	return Subtask{}, false
}

// UpdateSubtask applies fn to the subtask with the given ID and reports
// whether it was found.
func (t *Task) UpdateSubtask(subtaskID string, fn func(*Subtask)) bool {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == subtaskID {
			fn(&t.Subtasks[i])
			t.recordUpdate("subtasks", "subtask_updated", subtaskID)
			return true
		}
	}
	return false
}

// CompleteSubtask marks one subtask completed and reports whether it was found.
func (t *Task) CompleteSubtask(subtaskID string) bool {
	return t.UpdateSubtask(subtaskID, func(st *Subtask) { st.Completed = true })
}

// RemoveSubtask removes one subtask and reports whether it was found.
func (t *Task) RemoveSubtask(subtaskID string) bool {
	for i, st := range t.Subtasks {
		if st.ID == subtaskID {
			t.Subtasks = append(t.Subtasks[:i], t.Subtasks[i+1:]...)
			t.recordUpdate("subtasks", "subtask_removed", subtaskID)
			return true
		}
	}
	return false
}

// GetSubtaskProgress reports subtask completion, percentage rounded to
// one decimal place.
func (t *Task) GetSubtaskProgress() SubtaskProgress {
	total := len(t.Subtasks)
	if total == 0 {
		return SubtaskProgress{}
	}
	completed := 0
	for _, st := range t.Subtasks {
		if st.Completed {
			completed++
		}
	}
	pct := math.Round(float64(completed)/float64(total)*1000) / 10
	return SubtaskProgress{Total: total, Completed: completed, Percentage: pct}
}

// CompleteTask force-transitions the task to done and cascades completion
// to every subtask. This is the only cascading write in the model.
func (t *Task) CompleteTask() {
	for i := range t.Subtasks {
		t.Subtasks[i].Completed = true
	}
	old := t.Status
	t.Status = TaskStatusDone
	t.recordUpdate("status", string(old), string(TaskStatusDone))
}

// CanBeStarted reports whether the task is ready to pick up.
func (t *Task) CanBeStarted() bool { return t.Status.IsTodo() }

// IsOverdue reports whether the due date has passed for an unfinished task.
// Unparseable due dates are treated as not overdue.
func (t *Task) IsOverdue() bool {
	if t.DueDate == "" || t.Status.IsDone() {
		return false
	}
	due, err := parseDueDate(t.DueDate)
	if err != nil {
		return false
	}
	return time.Now().After(due)
}

func parseDueDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable due date %q", s)
}

// MarkDeleted raises a TaskDeleted event. The aggregate performs no
// physical removal; the repository reacts to the event.
func (t *Task) MarkDeleted() {
	now := time.Now()
	t.record(TaskDeleted{TaskID: t.ID, Title: t.Title, DeletedAt: now, At: now})
}

// MarkRetrieved raises a TaskRetrieved event carrying a snapshot of the
// task, used to trigger rule-file regeneration.
func (t *Task) MarkRetrieved() {
	now := time.Now()
	t.record(TaskRetrieved{TaskID: t.ID, TaskData: t.ToMap(), RetrievedAt: now, At: now})
}

// ToMap exports the task as a plain map for persistence and transport.
func (t *Task) ToMap() map[string]any {
	deps := make([]string, 0, len(t.Dependencies))
	for _, d := range t.Dependencies {
		deps = append(deps, d.String())
	}
	subtasks := make([]Subtask, len(t.Subtasks))
	copy(subtasks, t.Subtasks)

	return map[string]any{
		"id":               t.ID.String(),
		"title":            t.Title,
		"description":      t.Description,
		"status":           string(t.Status),
		"priority":         string(t.Priority),
		"details":          t.Details,
		"estimated_effort": string(t.EstimatedEffort),
		"assignees":        append([]string(nil), t.Assignees...),
		"labels":           append([]string(nil), t.Labels...),
		"dependencies":     deps,
		"subtasks":         subtasks,
		"due_date":         t.DueDate,
		"created_at":       t.CreatedAt.Format(time.RFC3339),
		"updated_at":       t.UpdatedAt.Format(time.RFC3339),
	}
}
