package project

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"taskmesh/pkg/models"
)

// SessionStatus represents the lifecycle state of a work session.
type SessionStatus string

const (
	// SessionActive indicates the agent is working.
	SessionActive SessionStatus = "active"
	// SessionPaused indicates work is suspended, clock stopped.
	SessionPaused SessionStatus = "paused"
	// SessionCompleted indicates the session ended normally.
	SessionCompleted SessionStatus = "completed"
	// SessionCancelled indicates the session was aborted.
	SessionCancelled SessionStatus = "cancelled"
	// SessionTimeout indicates the session exceeded its maximum duration.
	SessionTimeout SessionStatus = "timeout"
)

// Valid returns true if the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionPaused, SessionCompleted, SessionCancelled, SessionTimeout:
		return true
	default:
		return false
	}
}

// IsEnded reports whether the session reached a terminal state.
func (s SessionStatus) IsEnded() bool {
	return s == SessionCompleted || s == SessionCancelled || s == SessionTimeout
}

// ProgressEntry is one timestamped progress update within a session.
type ProgressEntry struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// WorkSession tracks one agent actively working on one task, including
// resource locks and a progress log. Not safe for concurrent use; the
// owning Project serializes access.
type WorkSession struct {
	ID      string        `json:"id"`
	AgentID string        `json:"agent_id"`
	TaskID  models.TaskID `json:"task_id"`
	TreeID  string        `json:"tree_id"`

	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`

	// MaxDuration bounds the session; zero means unbounded.
	MaxDuration time.Duration `json:"max_duration"`

	// pausedAt is set while paused; pausedTotal accumulates pause time.
	pausedAt    *time.Time
	pausedTotal time.Duration

	Progress        []ProgressEntry `json:"progress"`
	SuccessfulEnd   bool            `json:"successful_end"`
	CompletionNotes string          `json:"completion_notes,omitempty"`

	lockedResources map[string]bool
}

// NewWorkSession starts an active session with a generated ID.
// maxDuration of zero means the session never times out.
func NewWorkSession(agentID string, taskID models.TaskID, treeID string, maxDuration time.Duration) *WorkSession {
	return &WorkSession{
		ID:              uuid.NewString(),
		AgentID:         agentID,
		TaskID:          taskID,
		TreeID:          treeID,
		Status:          SessionActive,
		StartedAt:       time.Now(),
		MaxDuration:     maxDuration,
		lockedResources: make(map[string]bool),
	}
}

// IsActive reports whether the agent is currently working.
func (ws *WorkSession) IsActive() bool {
	return ws.Status == SessionActive
}

// Pause suspends an active session.
func (ws *WorkSession) Pause(reason string) error {
	if ws.Status != SessionActive {
		return fmt.Errorf("cannot pause session in %s state", ws.Status)
	}
	now := time.Now()
	ws.pausedAt = &now
	ws.Status = SessionPaused
	ws.RecordProgress("pause", reason, nil)
	return nil
}

// Resume reactivates a paused session. Time spent paused is excluded
// from the active duration.
func (ws *WorkSession) Resume() error {
	if ws.Status != SessionPaused {
		return fmt.Errorf("cannot resume session in %s state", ws.Status)
	}
	if ws.pausedAt != nil {
		ws.pausedTotal += time.Since(*ws.pausedAt)
		ws.pausedAt = nil
	}
	ws.Status = SessionActive
	ws.RecordProgress("resume", "session resumed", nil)
	return nil
}

// Complete ends the session normally.
func (ws *WorkSession) Complete(success bool, notes string) error {
	if ws.Status.IsEnded() {
		return fmt.Errorf("cannot complete session in %s state", ws.Status)
	}
	now := time.Now()
	ws.EndedAt = &now
	ws.Status = SessionCompleted
	ws.SuccessfulEnd = success
	ws.CompletionNotes = notes
	ws.UnlockAllResources()
	return nil
}

// Cancel aborts the session. Cancellation is always permitted and
// overrides any prior terminal state.
func (ws *WorkSession) Cancel(reason string) {
	now := time.Now()
	ws.EndedAt = &now
	ws.Status = SessionCancelled
	ws.RecordProgress("cancel", reason, nil)
	ws.UnlockAllResources()
}

// MarkTimedOut ends the session as timed out.
func (ws *WorkSession) MarkTimedOut() {
	now := time.Now()
	ws.EndedAt = &now
	ws.Status = SessionTimeout
	ws.UnlockAllResources()
}

// Extend replaces the maximum duration, for sessions that need more time.
func (ws *WorkSession) Extend(maxDuration time.Duration) {
	ws.MaxDuration = maxDuration
	ws.RecordProgress("extend", fmt.Sprintf("max duration set to %s", maxDuration), nil)
}

// RecordProgress appends one timestamped progress entry.
func (ws *WorkSession) RecordProgress(entryType, message string, metadata map[string]any) {
	ws.Progress = append(ws.Progress, ProgressEntry{
		Type:      entryType,
		Message:   message,
		Metadata:  metadata,
		Timestamp: time.Now(),
	})
}

// LockResource claims a named resource for this session.
func (ws *WorkSession) LockResource(resource string) {
	ws.lockedResources[resource] = true
}

// UnlockResource releases one named resource.
func (ws *WorkSession) UnlockResource(resource string) {
	delete(ws.lockedResources, resource)
}

// UnlockAllResources releases every resource the session holds.
func (ws *WorkSession) UnlockAllResources() {
	ws.lockedResources = make(map[string]bool)
}

// HoldsResource reports whether the session holds the named resource.
func (ws *WorkSession) HoldsResource(resource string) bool {
	return ws.lockedResources[resource]
}

// LockedResources returns the held resources, sorted.
func (ws *WorkSession) LockedResources() []string {
	resources := make([]string, 0, len(ws.lockedResources))
	for r := range ws.lockedResources {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	return resources
}

// TotalDuration returns wall-clock time from start to end, or to now for
// a session still running.
func (ws *WorkSession) TotalDuration() time.Duration {
	if ws.EndedAt != nil {
		return ws.EndedAt.Sub(ws.StartedAt)
	}
	return time.Since(ws.StartedAt)
}

// ActiveDuration returns the total duration minus time spent paused.
func (ws *WorkSession) ActiveDuration() time.Duration {
	d := ws.TotalDuration() - ws.pausedTotal
	if ws.pausedAt != nil {
		d -= time.Since(*ws.pausedAt)
	}
	return d
}

// IsTimeoutDue reports whether the session has exceeded its maximum
// duration. Sessions without a maximum never time out. The check also
// applies to ended sessions, using their recorded end time.
func (ws *WorkSession) IsTimeoutDue() bool {
	if ws.MaxDuration <= 0 {
		return false
	}
	return ws.TotalDuration() > ws.MaxDuration
}

// Summary returns a report-friendly view of the session.
func (ws *WorkSession) Summary() map[string]any {
	return map[string]any{
		"id":               ws.ID,
		"agent_id":         ws.AgentID,
		"task_id":          ws.TaskID.String(),
		"tree_id":          ws.TreeID,
		"status":           string(ws.Status),
		"started_at":       ws.StartedAt.Format(time.RFC3339),
		"total_duration":   ws.TotalDuration().String(),
		"active_duration":  ws.ActiveDuration().String(),
		"locked_resources": ws.LockedResources(),
		"progress_entries": len(ws.Progress),
	}
}
