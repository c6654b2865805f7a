// Package agent models the workers the orchestrator assigns trees and
// tasks to: their capabilities, workload, availability and track record.
package agent

import (
	"fmt"
	"time"

	"taskmesh/pkg/models"
)

// Status represents the current availability of an agent.
type Status string

const (
	// StatusAvailable indicates the agent can accept new work.
	StatusAvailable Status = "available"
	// StatusBusy indicates the agent is at its concurrency limit.
	StatusBusy Status = "busy"
	// StatusPaused indicates the agent temporarily stopped working.
	StatusPaused Status = "paused"
	// StatusOffline indicates the agent is not reachable.
	StatusOffline Status = "offline"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusPaused, StatusOffline:
		return true
	default:
		return false
	}
}

// TaskRequirements describes what a piece of work needs from an agent.
// Capabilities must ALL be present; one matching language or framework
// is enough.
type TaskRequirements struct {
	Capabilities []string `json:"capabilities"`
	Languages    []string `json:"languages"`
	Frameworks   []string `json:"frameworks"`
}

// successRateWeight is the weight of the historical rate in the rolling
// success-rate update; the remainder goes to the newest observation.
const successRateWeight = 0.9

// Agent is a worker registered with a project. Not safe for concurrent
// use; the owning Project serializes access.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Capabilities        []string `json:"capabilities"`
	Specializations     []string `json:"specializations,omitempty"`
	PreferredLanguages  []string `json:"preferred_languages"`
	PreferredFrameworks []string `json:"preferred_frameworks"`

	Status             Status  `json:"status"`
	MaxConcurrentTasks int     `json:"max_concurrent_tasks"`
	SuccessRate        float64 `json:"success_rate"`

	// PriorityPreference, when set, makes the orchestrator steer tasks of
	// that priority level to this agent first.
	PriorityPreference models.Priority `json:"priority_preference,omitempty"`

	// ActiveTasks holds the IDs of tasks the agent is currently working on.
	ActiveTasks []string `json:"active_tasks"`
	// AssignedProjects and AssignedTrees record orchestrator assignments.
	AssignedProjects []string `json:"assigned_projects"`
	AssignedTrees    []string `json:"assigned_trees"`

	CompletedTasks int       `json:"completed_tasks"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// New creates an agent with default workload limits: one concurrent task
// and a 100% starting success rate.
func New(id, name string, capabilities []string) *Agent {
	now := time.Now()
	return &Agent{
		ID:                 id,
		Name:               name,
		Capabilities:       append([]string(nil), capabilities...),
		Status:             StatusAvailable,
		MaxConcurrentTasks: 1,
		SuccessRate:        100.0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (a *Agent) touch() { a.UpdatedAt = time.Now() }

// HasCapability reports whether the agent lists the given capability.
func (a *Agent) HasCapability(capability string) bool {
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// AddCapability registers a capability if not already present.
func (a *Agent) AddCapability(capability string) {
	if capability == "" || a.HasCapability(capability) {
		return
	}
	a.Capabilities = append(a.Capabilities, capability)
	a.touch()
}

// RemoveCapability drops a capability. No-op when absent.
func (a *Agent) RemoveCapability(capability string) {
	for i, c := range a.Capabilities {
		if c == capability {
			a.Capabilities = append(a.Capabilities[:i], a.Capabilities[i+1:]...)
			a.touch()
			return
		}
	}
}

// IsAvailable reports whether the agent can take on another task right now.
func (a *Agent) IsAvailable() bool {
	return a.Status == StatusAvailable && len(a.ActiveTasks) < a.MaxConcurrentTasks
}

// CurrentWorkload returns the number of active tasks.
func (a *Agent) CurrentWorkload() int { return len(a.ActiveTasks) }

// WorkloadPercentage returns current workload over capacity as a
// percentage. An agent with no capacity is always fully loaded.
func (a *Agent) WorkloadPercentage() float64 {
	if a.MaxConcurrentTasks <= 0 {
		return 100.0
	}
	return float64(len(a.ActiveTasks)) / float64(a.MaxConcurrentTasks) * 100.0
}

// refreshBusyState flips between available and busy from the workload.
// Paused and offline agents keep their status.
func (a *Agent) refreshBusyState() {
	if a.Status != StatusAvailable && a.Status != StatusBusy {
		return
	}
	if len(a.ActiveTasks) >= a.MaxConcurrentTasks {
		a.Status = StatusBusy
	} else {
		a.Status = StatusAvailable
	}
}

// StartTask records that the agent began working on a task.
func (a *Agent) StartTask(taskID models.TaskID) error {
	if !a.IsAvailable() {
		return fmt.Errorf("Agent %s is not available for new tasks", a.ID)
	}
	a.ActiveTasks = append(a.ActiveTasks, taskID.String())
	a.refreshBusyState()
	a.touch()
	return nil
}

// CompleteTask records that a task finished, updating the rolling success
// rate from the outcome.
func (a *Agent) CompleteTask(taskID models.TaskID, success bool) error {
	idx := -1
	for i, id := range a.ActiveTasks {
		if id == taskID.String() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("Task %s not assigned to agent %s", taskID, a.ID)
	}

	a.ActiveTasks = append(a.ActiveTasks[:idx], a.ActiveTasks[idx+1:]...)
	a.CompletedTasks++

	observation := 0.0
	if success {
		observation = 100.0
	}
	a.SuccessRate = a.SuccessRate*successRateWeight + observation*(1-successRateWeight)

	a.refreshBusyState()
	a.touch()
	return nil
}

// AbandonTask drops a task from the active set without recording an
// outcome, used when a session times out. Reports whether the task was
// active.
func (a *Agent) AbandonTask(taskID models.TaskID) bool {
	for i, id := range a.ActiveTasks {
		if id == taskID.String() {
			a.ActiveTasks = append(a.ActiveTasks[:i], a.ActiveTasks[i+1:]...)
			a.refreshBusyState()
			a.touch()
			return true
		}
	}
	return false
}

// AssignToProject records a project assignment.
func (a *Agent) AssignToProject(projectID string) {
	for _, p := range a.AssignedProjects {
		if p == projectID {
			return
		}
	}
	a.AssignedProjects = append(a.AssignedProjects, projectID)
	a.touch()
}

// AssignToTree records a task tree assignment.
func (a *Agent) AssignToTree(treeID string) {
	for _, t := range a.AssignedTrees {
		if t == treeID {
			return
		}
	}
	a.AssignedTrees = append(a.AssignedTrees, treeID)
	a.touch()
}

// PauseWork marks the agent paused. Active tasks stay assigned.
func (a *Agent) PauseWork() {
	a.Status = StatusPaused
	a.touch()
}

// ResumeWork restores available (or busy, when at capacity) after a pause.
func (a *Agent) ResumeWork() {
	a.Status = StatusAvailable
	a.refreshBusyState()
	a.touch()
}

// GoOffline marks the agent unreachable.
func (a *Agent) GoOffline() {
	a.Status = StatusOffline
	a.touch()
}

// GoOnline brings an offline agent back, restoring available or busy
// from its workload.
func (a *Agent) GoOnline() {
	a.Status = StatusAvailable
	a.refreshBusyState()
	a.touch()
}

func anyMatch(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// CanHandleTask reports whether the agent satisfies the requirements:
// every capability, plus at least one language and one framework match
// when any are requested.
func (a *Agent) CanHandleTask(req TaskRequirements) bool {
	for _, c := range req.Capabilities {
		if !a.HasCapability(c) {
			return false
		}
	}
	if len(req.Languages) > 0 && !anyMatch(a.PreferredLanguages, req.Languages) {
		return false
	}
	if len(req.Frameworks) > 0 && !anyMatch(a.PreferredFrameworks, req.Frameworks) {
		return false
	}
	return true
}

// CalculateSuitabilityScore scores how well the agent fits the
// requirements on a 0-100 scale. An agent that cannot handle the task
// scores 0; otherwise base 50, up to 20 for availability, up to 10 for a
// light workload and up to 10 for the track record.
func (a *Agent) CalculateSuitabilityScore(req TaskRequirements) float64 {
	if !a.CanHandleTask(req) {
		return 0
	}
	score := 50.0
	if a.IsAvailable() {
		score += 20.0
	}
	score += (100.0 - a.WorkloadPercentage()) / 100.0 * 10.0
	score += a.SuccessRate / 100.0 * 10.0
	return score
}

// Profile returns a summary of the agent for reports and persistence.
func (a *Agent) Profile() map[string]any {
	return map[string]any{
		"id":                   a.ID,
		"name":                 a.Name,
		"description":          a.Description,
		"status":               string(a.Status),
		"capabilities":         append([]string(nil), a.Capabilities...),
		"specializations":      append([]string(nil), a.Specializations...),
		"priority_preference":  string(a.PriorityPreference),
		"preferred_languages":  append([]string(nil), a.PreferredLanguages...),
		"preferred_frameworks": append([]string(nil), a.PreferredFrameworks...),
		"max_concurrent_tasks": a.MaxConcurrentTasks,
		"current_workload":     len(a.ActiveTasks),
		"workload_percentage":  a.WorkloadPercentage(),
		"active_tasks":         append([]string(nil), a.ActiveTasks...),
		"assigned_trees":       append([]string(nil), a.AssignedTrees...),
		"completed_tasks":      a.CompletedTasks,
		"success_rate":         a.SuccessRate,
	}
}
