package project

import (
	"strings"
	"testing"
	"time"

	"taskmesh/internal/agent"
	"taskmesh/pkg/models"
)

func newTestProject(t *testing.T) *Project {
	t.Helper()
	return New("proj-1", "Web App", "test project")
}

func addTreeWithTask(t *testing.T, p *Project, treeID, taskID string) *models.Task {
	t.Helper()
	tree, err := p.CreateTaskTree(treeID, treeID, "")
	if err != nil {
		t.Fatal(err)
	}
	task, err := models.NewTask(models.MustTaskID(taskID), "work item", "project test task")
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.AddRootTask(task); err != nil {
		t.Fatal(err)
	}
	return task
}

func TestCreateTaskTree(t *testing.T) {
	p := newTestProject(t)

	if _, err := p.CreateTaskTree("backend", "Backend", ""); err != nil {
		t.Fatalf("CreateTaskTree() error: %v", err)
	}
	_, err := p.CreateTaskTree("backend", "Backend again", "")
	if err == nil {
		t.Fatal("duplicate CreateTaskTree() succeeded")
	}
	if got := err.Error(); got != "Task tree backend already exists" {
		t.Errorf("error = %q", got)
	}

	if _, err := p.TaskTree("missing"); err == nil {
		t.Error("TaskTree(missing) succeeded")
	} else if got := err.Error(); got != "Task tree missing not found" {
		t.Errorf("error = %q", got)
	}
}

func TestAssignTreeToAgent(t *testing.T) {
	p := newTestProject(t)
	if _, err := p.CreateTaskTree("backend", "Backend", ""); err != nil {
		t.Fatal(err)
	}

	err := p.AssignTreeToAgent("backend", "ghost")
	if err == nil {
		t.Fatal("assignment to unregistered agent succeeded")
	}
	if got := err.Error(); got != "Agent ghost not registered" {
		t.Errorf("error = %q", got)
	}

	a := agent.New("agent-1", "Coder", []string{"coding"})
	if err := p.RegisterAgent(a); err != nil {
		t.Fatal(err)
	}
	if err := p.AssignTreeToAgent("backend", "agent-1"); err != nil {
		t.Fatalf("AssignTreeToAgent() error: %v", err)
	}

	// Re-assigning to the same agent is a no-op.
	if err := p.AssignTreeToAgent("backend", "agent-1"); err != nil {
		t.Errorf("same-agent reassignment error: %v", err)
	}

	b := agent.New("agent-2", "Coder B", nil)
	if err := p.RegisterAgent(b); err != nil {
		t.Fatal(err)
	}
	err = p.AssignTreeToAgent("backend", "agent-2")
	if err == nil {
		t.Fatal("double assignment succeeded")
	}
	if got := err.Error(); got != "Task tree backend already assigned to agent agent-1" {
		t.Errorf("error = %q", got)
	}

	if got := p.TreeAssignments()["backend"]; got != "agent-1" {
		t.Errorf("assignment = %q, want agent-1", got)
	}
	if len(a.AssignedTrees) != 1 || a.AssignedTrees[0] != "backend" {
		t.Errorf("agent AssignedTrees = %v", a.AssignedTrees)
	}
}

func TestCrossTreeDependencies(t *testing.T) {
	p := newTestProject(t)
	frontendTask := addTreeWithTask(t, p, "frontend", "20250115001")
	backendTask := addTreeWithTask(t, p, "backend", "20250115002")

	if err := p.AddCrossTreeDependency(frontendTask.ID, backendTask.ID); err != nil {
		t.Fatalf("AddCrossTreeDependency() error: %v", err)
	}

	deps := p.CrossTreeDependencies()
	if got := deps[frontendTask.ID.String()]; len(got) != 1 || got[0] != backendTask.ID.String() {
		t.Errorf("dependencies = %v", deps)
	}

	t.Run("same tree rejected", func(t *testing.T) {
		other, err := models.NewTask(models.MustTaskID("20250115003"), "sibling", "same tree task")
		if err != nil {
			t.Fatal(err)
		}
		tree, err := p.TaskTree("backend")
		if err != nil {
			t.Fatal(err)
		}
		if err := tree.AddRootTask(other); err != nil {
			t.Fatal(err)
		}

		err = p.AddCrossTreeDependency(other.ID, backendTask.ID)
		if err == nil {
			t.Fatal("same-tree cross dependency accepted")
		}
		if got := err.Error(); got != "Use regular task dependencies for tasks within the same tree" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("unknown dependent rejected", func(t *testing.T) {
		err := p.AddCrossTreeDependency(models.MustTaskID("20250117001"), backendTask.ID)
		if err == nil || !strings.Contains(err.Error(), "not found in any tree") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("dangling prerequisite kept", func(t *testing.T) {
		ghost := models.MustTaskID("20250117002")
		if err := p.AddCrossTreeDependency(frontendTask.ID, ghost); err != nil {
			t.Fatalf("AddCrossTreeDependency() error: %v", err)
		}
		deps := p.CrossTreeDependencies()[frontendTask.ID.String()]
		found := false
		for _, dep := range deps {
			if dep == ghost.String() {
				found = true
			}
		}
		if !found {
			t.Errorf("dependencies = %v, want the dangling prerequisite recorded", deps)
		}
	})
}

func TestWorkSessionLifecycleThroughProject(t *testing.T) {
	p := newTestProject(t)
	task := addTreeWithTask(t, p, "backend", "20250115001")
	a := agent.New("agent-1", "Coder", []string{"coding"})
	if err := p.RegisterAgent(a); err != nil {
		t.Fatal(err)
	}

	t.Run("tree must be assigned first", func(t *testing.T) {
		_, err := p.StartWorkSession("agent-1", task.ID, 0)
		if err == nil {
			t.Fatal("StartWorkSession() without assignment succeeded")
		}
		if got := err.Error(); got != "Task tree backend not assigned to agent agent-1" {
			t.Errorf("error = %q", got)
		}
	})

	if err := p.AssignTreeToAgent("backend", "agent-1"); err != nil {
		t.Fatal(err)
	}

	session, err := p.StartWorkSession("agent-1", task.ID, time.Hour)
	if err != nil {
		t.Fatalf("StartWorkSession() error: %v", err)
	}
	if session.Status != SessionActive {
		t.Errorf("session status = %s, want active", session.Status)
	}
	if a.CurrentWorkload() != 1 {
		t.Errorf("agent workload = %d, want 1", a.CurrentWorkload())
	}

	t.Run("agent at capacity rejected", func(t *testing.T) {
		tree, err := p.TaskTree("backend")
		if err != nil {
			t.Fatal(err)
		}
		second, err := models.NewTask(models.MustTaskID("20250115002"), "more work", "second task")
		if err != nil {
			t.Fatal(err)
		}
		if err := tree.AddRootTask(second); err != nil {
			t.Fatal(err)
		}
		if _, err := p.StartWorkSession("agent-1", second.ID, 0); err == nil {
			t.Error("StartWorkSession() for busy agent succeeded")
		}
	})

	if err := p.CompleteWorkSession(session.ID, true, "shipped"); err != nil {
		t.Fatalf("CompleteWorkSession() error: %v", err)
	}
	if a.CurrentWorkload() != 0 {
		t.Errorf("agent workload = %d after completion, want 0", a.CurrentWorkload())
	}
	if len(p.Sessions()) != 0 {
		t.Errorf("active sessions = %d, want 0", len(p.Sessions()))
	}
}

func TestTimeoutWorkSession(t *testing.T) {
	p := newTestProject(t)
	task := addTreeWithTask(t, p, "backend", "20250115001")
	a := agent.New("agent-1", "Coder", nil)
	if err := p.RegisterAgent(a); err != nil {
		t.Fatal(err)
	}
	if err := p.AssignTreeToAgent("backend", "agent-1"); err != nil {
		t.Fatal(err)
	}

	session, err := p.StartWorkSession("agent-1", task.ID, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	session.LockResource("db/users")
	rate := a.SuccessRate

	if err := p.TimeoutWorkSession(session.ID); err != nil {
		t.Fatalf("TimeoutWorkSession() error: %v", err)
	}
	if session.Status != SessionTimeout {
		t.Errorf("session status = %s, want timeout", session.Status)
	}
	if len(session.LockedResources()) != 0 {
		t.Error("timeout should release resources")
	}
	if a.CurrentWorkload() != 0 {
		t.Errorf("agent workload = %d, want 0", a.CurrentWorkload())
	}
	if a.SuccessRate != rate {
		t.Errorf("timeout changed success rate: %v -> %v", rate, a.SuccessRate)
	}
	if len(p.Sessions()) != 0 {
		t.Errorf("active sessions = %d, want 0", len(p.Sessions()))
	}
}

func TestAvailableWorkForAgent(t *testing.T) {
	p := newTestProject(t)
	addTreeWithTask(t, p, "backend", "20250115001")
	addTreeWithTask(t, p, "frontend", "20250115002")

	a := agent.New("agent-1", "Coder", nil)
	if err := p.RegisterAgent(a); err != nil {
		t.Fatal(err)
	}
	if err := p.AssignTreeToAgent("backend", "agent-1"); err != nil {
		t.Fatal(err)
	}

	tasks, err := p.AvailableWorkForAgent("agent-1")
	if err != nil {
		t.Fatalf("AvailableWorkForAgent() error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID.String() != "20250115001" {
		t.Errorf("tasks = %v, want just the backend task", tasks)
	}

	if _, err := p.AvailableWorkForAgent("ghost"); err == nil {
		t.Error("AvailableWorkForAgent(ghost) succeeded")
	}
}

func TestResourceLocksAndStatus(t *testing.T) {
	p := newTestProject(t)
	task := addTreeWithTask(t, p, "backend", "20250115001")
	a := agent.New("agent-1", "Coder", nil)
	if err := p.RegisterAgent(a); err != nil {
		t.Fatal(err)
	}
	if err := p.AssignTreeToAgent("backend", "agent-1"); err != nil {
		t.Fatal(err)
	}
	session, err := p.StartWorkSession("agent-1", task.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	session.LockResource("db/users")

	locks := p.ResourceLocks()
	if got := locks["db/users"]; len(got) != 1 || got[0] != session.ID {
		t.Errorf("ResourceLocks() = %v", locks)
	}

	status := p.OrchestrationStatus()
	if status["project_id"] != "proj-1" || status["total_trees"] != 1 {
		t.Errorf("status = %v", status)
	}
	if status["active_sessions"] != 1 || status["resource_locks"] != 1 {
		t.Errorf("status sessions/locks = %v / %v", status["active_sessions"], status["resource_locks"])
	}
	trees, ok := status["trees"].(map[string]any)
	if !ok {
		t.Fatalf("trees summary missing: %v", status["trees"])
	}
	backend, ok := trees["backend"].(map[string]any)
	if !ok || backend["assigned_agent"] != "agent-1" {
		t.Errorf("backend summary = %v", trees["backend"])
	}
}
