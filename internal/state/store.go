package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskmesh/internal/agent"
	"taskmesh/internal/project"
	"taskmesh/pkg/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SaveTask upserts one task. The full aggregate is stored as a JSON
// document alongside indexed columns for querying.
func (db *DB) SaveTask(task *models.Task) error {
	doc, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}

	_, err = db.Exec(`
		INSERT INTO tasks (id, title, description, status, priority, details, estimated_effort, due_date, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			details = excluded.details,
			estimated_effort = excluded.estimated_effort,
			due_date = excluded.due_date,
			doc = excluded.doc,
			updated_at = excluded.updated_at
	`, task.ID.String(), task.Title, task.Description, string(task.Status), string(task.Priority),
		task.Details, string(task.EstimatedEffort), task.DueDate, string(doc),
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// LoadTask reads one task by ID.
func (db *DB) LoadTask(id models.TaskID) (*models.Task, error) {
	var doc string
	err := db.QueryRow("SELECT doc FROM tasks WHERE id = ?", id.String()).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}

	task := &models.Task{}
	if err := json.Unmarshal([]byte(doc), task); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return task, nil
}

// DeleteTask removes one task by ID.
func (db *DB) DeleteTask(id models.TaskID) error {
	res, err := db.Exec("DELETE FROM tasks WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListTaskIDs returns every stored task ID, ordered. Used for daily
// sequence generation.
func (db *DB) ListTaskIDs() ([]string, error) {
	rows, err := db.Query("SELECT id FROM tasks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list task ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadTasksByStatus returns all tasks currently in the given status.
func (db *DB) LoadTasksByStatus(status models.TaskStatus) ([]*models.Task, error) {
	rows, err := db.Query("SELECT doc FROM tasks WHERE status = ? ORDER BY id", string(status))
	if err != nil {
		return nil, fmt.Errorf("load tasks by status %s: %w", status, err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan task doc: %w", err)
		}
		task := &models.Task{}
		if err := json.Unmarshal([]byte(doc), task); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// SaveAgent upserts one agent profile.
func (db *DB) SaveAgent(a *agent.Agent) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal agent %s: %w", a.ID, err)
	}

	_, err = db.Exec(`
		INSERT INTO agents (id, name, status, max_concurrent_tasks, success_rate, completed_tasks, doc, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			max_concurrent_tasks = excluded.max_concurrent_tasks,
			success_rate = excluded.success_rate,
			completed_tasks = excluded.completed_tasks,
			doc = excluded.doc,
			updated_at = excluded.updated_at
	`, a.ID, a.Name, string(a.Status), a.MaxConcurrentTasks, a.SuccessRate,
		a.CompletedTasks, string(doc), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save agent %s: %w", a.ID, err)
	}
	return nil
}

// LoadAgent reads one agent by ID.
func (db *DB) LoadAgent(id string) (*agent.Agent, error) {
	var doc string
	err := db.QueryRow("SELECT doc FROM agents WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", id, err)
	}

	a := &agent.Agent{}
	if err := json.Unmarshal([]byte(doc), a); err != nil {
		return nil, fmt.Errorf("unmarshal agent %s: %w", id, err)
	}
	return a, nil
}

// LoadAgents returns every stored agent, ordered by ID.
func (db *DB) LoadAgents() ([]*agent.Agent, error) {
	rows, err := db.Query("SELECT doc FROM agents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	defer rows.Close()

	var agents []*agent.Agent
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan agent doc: %w", err)
		}
		a := &agent.Agent{}
		if err := json.Unmarshal([]byte(doc), a); err != nil {
			return nil, fmt.Errorf("unmarshal agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// RecordSession writes one work session to the history table, updating
// the row as the session progresses.
func (db *DB) RecordSession(ws *project.WorkSession) error {
	var endedAt any
	if ws.EndedAt != nil {
		endedAt = formatTime(*ws.EndedAt)
	}
	successful := 0
	if ws.SuccessfulEnd {
		successful = 1
	}

	_, err := db.Exec(`
		INSERT INTO sessions (id, agent_id, task_id, tree_id, status, started_at, ended_at, successful, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			ended_at = excluded.ended_at,
			successful = excluded.successful,
			notes = excluded.notes
	`, ws.ID, ws.AgentID, ws.TaskID.String(), ws.TreeID, string(ws.Status),
		formatTime(ws.StartedAt), endedAt, successful, ws.CompletionNotes)
	if err != nil {
		return fmt.Errorf("record session %s: %w", ws.ID, err)
	}
	return nil
}

// SessionRecord is one row of session history.
type SessionRecord struct {
	ID         string
	AgentID    string
	TaskID     string
	TreeID     string
	Status     string
	StartedAt  time.Time
	EndedAt    *time.Time
	Successful bool
	Notes      string
}

// SessionHistory returns the recorded sessions for an agent, newest first.
func (db *DB) SessionHistory(agentID string) ([]SessionRecord, error) {
	rows, err := db.Query(`
		SELECT id, agent_id, task_id, tree_id, status, started_at, ended_at, successful, notes
		FROM sessions WHERE agent_id = ? ORDER BY started_at DESC
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("session history for %s: %w", agentID, err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var (
			rec        SessionRecord
			startedAt  string
			endedAt    sql.NullString
			successful int
		)
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.TaskID, &rec.TreeID, &rec.Status,
			&startedAt, &endedAt, &successful, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse session start: %w", err)
		}
		if endedAt.Valid {
			t, err := parseTime(endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse session end: %w", err)
			}
			rec.EndedAt = &t
		}
		rec.Successful = successful == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}
