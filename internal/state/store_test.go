package state

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"taskmesh/internal/agent"
	"taskmesh/internal/project"
	"taskmesh/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "taskmesh.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestSaveLoadTask(t *testing.T) {
	db := openTestDB(t)

	task, err := models.NewTask(models.MustTaskID("20250115001"), "Implement login", "Add session handling to the API")
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if err := task.UpdatePriority(models.PriorityHigh); err != nil {
		t.Fatalf("UpdatePriority() error = %v", err)
	}
	task.AddAssignee("backend-dev")
	if _, err := task.AddSubtask("Write handler", "", nil); err != nil {
		t.Fatalf("AddSubtask() error = %v", err)
	}

	if err := db.SaveTask(task); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}

	got, err := db.LoadTask(task.ID)
	if err != nil {
		t.Fatalf("LoadTask() error = %v", err)
	}
	if got.Title != task.Title {
		t.Errorf("title = %q, want %q", got.Title, task.Title)
	}
	if got.Priority != models.PriorityHigh {
		t.Errorf("priority = %s, want high", got.Priority)
	}
	if len(got.Assignees) != 1 || got.Assignees[0] != "@backend-dev" {
		t.Errorf("assignees = %v, want [@backend-dev]", got.Assignees)
	}
	if len(got.Subtasks) != 1 || got.Subtasks[0].Title != "Write handler" {
		t.Errorf("subtasks = %v, want one titled 'Write handler'", got.Subtasks)
	}
}

func TestSaveTaskUpsert(t *testing.T) {
	db := openTestDB(t)

	task, err := models.NewTask(models.MustTaskID("20250115001"), "Original title", "desc")
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}

	if err := task.UpdateTitle("Revised title"); err != nil {
		t.Fatalf("UpdateTitle() error = %v", err)
	}
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("second SaveTask() error = %v", err)
	}

	got, err := db.LoadTask(task.ID)
	if err != nil {
		t.Fatalf("LoadTask() error = %v", err)
	}
	if got.Title != "Revised title" {
		t.Errorf("title = %q, want %q", got.Title, "Revised title")
	}
}

func TestLoadTaskNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.LoadTask(models.MustTaskID("20250115001"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadTask() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTask(t *testing.T) {
	db := openTestDB(t)

	task, err := models.NewTask(models.MustTaskID("20250115001"), "Remove me", "desc")
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	if err := db.DeleteTask(task.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if _, err := db.LoadTask(task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadTask() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteTask(task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteTask() on missing row error = %v, want ErrNotFound", err)
	}
}

func TestLoadTasksByStatus(t *testing.T) {
	db := openTestDB(t)

	for i, title := range []string{"First", "Second", "Third"} {
		id := models.MustTaskID(fmt.Sprintf("2025011500%d", i+1))
		task, err := models.NewTask(id, title, "desc")
		if err != nil {
			t.Fatalf("NewTask() error = %v", err)
		}
		if i == 2 {
			if err := task.UpdateStatus(models.TaskStatusInProgress); err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
		}
		if err := db.SaveTask(task); err != nil {
			t.Fatalf("SaveTask() error = %v", err)
		}
	}

	todo, err := db.LoadTasksByStatus(models.TaskStatusTodo)
	if err != nil {
		t.Fatalf("LoadTasksByStatus() error = %v", err)
	}
	if len(todo) != 2 {
		t.Errorf("todo tasks = %d, want 2", len(todo))
	}

	active, err := db.LoadTasksByStatus(models.TaskStatusInProgress)
	if err != nil {
		t.Fatalf("LoadTasksByStatus() error = %v", err)
	}
	if len(active) != 1 || active[0].Title != "Third" {
		t.Errorf("in_progress tasks = %v, want only 'Third'", active)
	}
}

func TestListTaskIDs(t *testing.T) {
	db := openTestDB(t)

	for _, raw := range []string{"20250115002", "20250115001"} {
		task, err := models.NewTask(models.MustTaskID(raw), "Task "+raw, "desc")
		if err != nil {
			t.Fatalf("NewTask() error = %v", err)
		}
		if err := db.SaveTask(task); err != nil {
			t.Fatalf("SaveTask() error = %v", err)
		}
	}

	ids, err := db.ListTaskIDs()
	if err != nil {
		t.Fatalf("ListTaskIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "20250115001" || ids[1] != "20250115002" {
		t.Errorf("ids = %v, want ordered [20250115001 20250115002]", ids)
	}
}

func TestSaveLoadAgent(t *testing.T) {
	db := openTestDB(t)

	a := agent.New("backend-dev", "Backend Developer", []string{"backend_development"})
	a.Description = "Owns the service layer"
	a.Specializations = []string{"api_design"}
	a.MaxConcurrentTasks = 2
	a.PreferredLanguages = []string{"go"}
	a.PriorityPreference = models.PriorityHigh
	if err := db.SaveAgent(a); err != nil {
		t.Fatalf("SaveAgent() error = %v", err)
	}

	got, err := db.LoadAgent("backend-dev")
	if err != nil {
		t.Fatalf("LoadAgent() error = %v", err)
	}
	if got.Name != "Backend Developer" {
		t.Errorf("name = %q, want %q", got.Name, "Backend Developer")
	}
	if got.MaxConcurrentTasks != 2 {
		t.Errorf("max concurrent = %d, want 2", got.MaxConcurrentTasks)
	}
	if got.SuccessRate != 100.0 {
		t.Errorf("success rate = %v, want 100", got.SuccessRate)
	}
	if got.Description != "Owns the service layer" {
		t.Errorf("description = %q", got.Description)
	}
	if len(got.Specializations) != 1 || got.Specializations[0] != "api_design" {
		t.Errorf("specializations = %v", got.Specializations)
	}
	if got.PriorityPreference != models.PriorityHigh {
		t.Errorf("priority preference = %q, want high", got.PriorityPreference)
	}
	if len(got.PreferredLanguages) != 1 || got.PreferredLanguages[0] != "go" {
		t.Errorf("languages = %v, want [go]", got.PreferredLanguages)
	}
}

func TestLoadAgents(t *testing.T) {
	db := openTestDB(t)

	for _, id := range []string{"frontend-dev", "backend-dev"} {
		if err := db.SaveAgent(agent.New(id, id, nil)); err != nil {
			t.Fatalf("SaveAgent(%s) error = %v", id, err)
		}
	}

	agents, err := db.LoadAgents()
	if err != nil {
		t.Fatalf("LoadAgents() error = %v", err)
	}
	if len(agents) != 2 || agents[0].ID != "backend-dev" || agents[1].ID != "frontend-dev" {
		t.Errorf("agents = %v, want ordered by ID", agents)
	}
}

func TestRecordSessionAndHistory(t *testing.T) {
	db := openTestDB(t)

	ws := project.NewWorkSession("backend-dev", models.MustTaskID("20250115001"), "backend_tree", 0)
	if err := db.RecordSession(ws); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}

	if err := ws.Complete(true, "merged cleanly"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := db.RecordSession(ws); err != nil {
		t.Fatalf("RecordSession() update error = %v", err)
	}

	history, err := db.SessionHistory("backend-dev")
	if err != nil {
		t.Fatalf("SessionHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	rec := history[0]
	if rec.Status != "completed" {
		t.Errorf("status = %q, want completed", rec.Status)
	}
	if !rec.Successful {
		t.Error("expected successful end")
	}
	if rec.Notes != "merged cleanly" {
		t.Errorf("notes = %q, want %q", rec.Notes, "merged cleanly")
	}
	if rec.EndedAt == nil {
		t.Error("expected ended_at to be recorded")
	}
	if rec.StartedAt.After(time.Now()) {
		t.Error("started_at in the future")
	}
}
