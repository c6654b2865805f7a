// Package project holds the coordination aggregates: task trees, work
// sessions and the project that ties trees, agents and sessions together.
package project

import (
	"fmt"
	"sort"
	"time"

	"taskmesh/internal/graph"
	"taskmesh/pkg/models"
)

// TreeStatus represents the lifecycle state of a task tree.
type TreeStatus string

const (
	// TreeStatusActive indicates the tree is open for work.
	TreeStatusActive TreeStatus = "active"
	// TreeStatusPaused indicates work on the tree is suspended.
	TreeStatusPaused TreeStatus = "paused"
	// TreeStatusCompleted indicates all work in the tree finished.
	TreeStatusCompleted TreeStatus = "completed"
	// TreeStatusArchived indicates the tree is retired.
	TreeStatusArchived TreeStatus = "archived"
)

// Valid returns true if the status is a known value.
func (s TreeStatus) Valid() bool {
	switch s {
	case TreeStatusActive, TreeStatusPaused, TreeStatusCompleted, TreeStatusArchived:
		return true
	default:
		return false
	}
}

// TaskTree is a named hierarchy of related tasks, the unit the
// orchestrator assigns to one agent. Not safe for concurrent use; the
// owning Project serializes access.
type TaskTree struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      TreeStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// rootTasks holds top-level tasks; allTasks holds every task in the
	// tree including children, keyed by task ID.
	rootTasks map[string]*models.Task
	allTasks  map[string]*models.Task
}

// NewTaskTree creates an empty active tree.
func NewTaskTree(id, name, description string) *TaskTree {
	now := time.Now()
	return &TaskTree{
		ID:          id,
		Name:        name,
		Description: description,
		Status:      TreeStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		rootTasks:   make(map[string]*models.Task),
		allTasks:    make(map[string]*models.Task),
	}
}

func (tt *TaskTree) touch() { tt.UpdatedAt = time.Now() }

// AddRootTask adds a top-level task to the tree.
func (tt *TaskTree) AddRootTask(task *models.Task) error {
	id := task.ID.String()
	if _, exists := tt.allTasks[id]; exists {
		return fmt.Errorf("task %s already exists in tree %s", id, tt.ID)
	}
	tt.rootTasks[id] = task
	tt.allTasks[id] = task
	tt.touch()
	return nil
}

// AddChildTask adds a task under an existing parent task.
func (tt *TaskTree) AddChildTask(parentID models.TaskID, task *models.Task) error {
	if _, exists := tt.allTasks[parentID.String()]; !exists {
		return fmt.Errorf("parent task %s not found in tree %s", parentID, tt.ID)
	}
	id := task.ID.String()
	if _, exists := tt.allTasks[id]; exists {
		return fmt.Errorf("task %s already exists in tree %s", id, tt.ID)
	}
	tt.allTasks[id] = task
	tt.touch()
	return nil
}

// Task returns the task with the given ID.
func (tt *TaskTree) Task(id models.TaskID) (*models.Task, bool) {
	task, ok := tt.allTasks[id.String()]
	return task, ok
}

// HasTask reports whether the tree contains the given task.
func (tt *TaskTree) HasTask(id models.TaskID) bool {
	_, ok := tt.allTasks[id.String()]
	return ok
}

// AllTasks returns every task in the tree, ordered by ID.
func (tt *TaskTree) AllTasks() []*models.Task {
	ids := make([]string, 0, len(tt.allTasks))
	for id := range tt.allTasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tasks := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		tasks = append(tasks, tt.allTasks[id])
	}
	return tasks
}

// RootTasks returns the top-level tasks, ordered by ID.
func (tt *TaskTree) RootTasks() []*models.Task {
	ids := make([]string, 0, len(tt.rootTasks))
	for id := range tt.rootTasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tasks := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		tasks = append(tasks, tt.rootTasks[id])
	}
	return tasks
}

// AvailableTasks returns the tasks that can be worked on now: not done
// or cancelled, with every in-tree dependency done. Dependencies on
// tasks outside the tree do not block.
func (tt *TaskTree) AvailableTasks() []*models.Task {
	var available []*models.Task
	for _, task := range tt.AllTasks() {
		if task.Status.IsTerminal() {
			continue
		}
		blocked := false
		for _, dep := range task.Dependencies {
			if depTask, ok := tt.allTasks[dep.String()]; ok && !depTask.Status.IsDone() {
				blocked = true
				break
			}
		}
		if !blocked {
			available = append(available, task)
		}
	}
	return available
}

// NextTask returns the highest-priority available task, or nil when
// nothing is available. Ties break by task ID, oldest daily sequence first.
func (tt *TaskTree) NextTask() *models.Task {
	var best *models.Task
	for _, task := range tt.AvailableTasks() {
		if best == nil || best.Priority.Less(task.Priority) {
			best = task
		}
	}
	return best
}

// TaskCount returns the total number of tasks in the tree.
func (tt *TaskTree) TaskCount() int { return len(tt.allTasks) }

// CompletedTaskCount returns how many tasks reached done.
func (tt *TaskTree) CompletedTaskCount() int {
	count := 0
	for _, task := range tt.allTasks {
		if task.Status.IsDone() {
			count++
		}
	}
	return count
}

// ProgressPercentage returns completed over total as a percentage, 0 for
// an empty tree.
func (tt *TaskTree) ProgressPercentage() float64 {
	if len(tt.allTasks) == 0 {
		return 0
	}
	return float64(tt.CompletedTaskCount()) / float64(len(tt.allTasks)) * 100.0
}

// DependencyGraph builds a dependency graph over the tree's tasks.
// Dependencies pointing outside the tree are dropped.
func (tt *TaskTree) DependencyGraph() (*graph.DependencyGraph, error) {
	g := graph.New()
	if err := g.BuildSubset(tt.AllTasks()); err != nil {
		return nil, err
	}
	return g, nil
}

// Pause suspends work on the tree.
func (tt *TaskTree) Pause() {
	tt.Status = TreeStatusPaused
	tt.touch()
}

// Resume reopens a paused tree.
func (tt *TaskTree) Resume() {
	tt.Status = TreeStatusActive
	tt.touch()
}

// Complete marks the tree finished.
func (tt *TaskTree) Complete() {
	tt.Status = TreeStatusCompleted
	tt.touch()
}

// Archive retires the tree.
func (tt *TaskTree) Archive() {
	tt.Status = TreeStatusArchived
	tt.touch()
}

// Summary returns a progress summary for reports.
func (tt *TaskTree) Summary() map[string]any {
	return map[string]any{
		"id":              tt.ID,
		"name":            tt.Name,
		"status":          string(tt.Status),
		"total_tasks":     tt.TaskCount(),
		"completed_tasks": tt.CompletedTaskCount(),
		"progress":        tt.ProgressPercentage(),
	}
}
