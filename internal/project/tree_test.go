package project

import (
	"testing"

	"taskmesh/pkg/models"
)

func treeTask(t *testing.T, id, title string, priority models.Priority) *models.Task {
	t.Helper()
	task, err := models.NewTask(models.MustTaskID(id), title, "tree test task")
	if err != nil {
		t.Fatal(err)
	}
	if err := task.UpdatePriority(priority); err != nil {
		t.Fatal(err)
	}
	return task
}

func TestTaskTreeAdd(t *testing.T) {
	tree := NewTaskTree("frontend", "Frontend", "UI work")

	root := treeTask(t, "20250115001", "root", models.PriorityMedium)
	if err := tree.AddRootTask(root); err != nil {
		t.Fatalf("AddRootTask() error: %v", err)
	}
	if err := tree.AddRootTask(root); err == nil {
		t.Error("duplicate AddRootTask() succeeded")
	}

	child := treeTask(t, "20250115002", "child", models.PriorityMedium)
	if err := tree.AddChildTask(root.ID, child); err != nil {
		t.Fatalf("AddChildTask() error: %v", err)
	}

	orphan := treeTask(t, "20250115003", "orphan", models.PriorityMedium)
	if err := tree.AddChildTask(models.MustTaskID("20250115099"), orphan); err == nil {
		t.Error("AddChildTask() under missing parent succeeded")
	}

	if tree.TaskCount() != 2 {
		t.Errorf("TaskCount() = %d, want 2", tree.TaskCount())
	}
	if len(tree.RootTasks()) != 1 {
		t.Errorf("RootTasks() = %d entries, want 1", len(tree.RootTasks()))
	}
}

func TestAvailableTasks(t *testing.T) {
	tree := NewTaskTree("backend", "Backend", "API work")

	a := treeTask(t, "20250115001", "a", models.PriorityMedium)
	b := treeTask(t, "20250115002", "b", models.PriorityMedium)
	if err := b.AddDependency(a.ID); err != nil {
		t.Fatal(err)
	}
	c := treeTask(t, "20250115003", "c", models.PriorityMedium)

	for _, task := range []*models.Task{a, b, c} {
		if err := tree.AddRootTask(task); err != nil {
			t.Fatal(err)
		}
	}

	available := tree.AvailableTasks()
	if len(available) != 2 {
		t.Fatalf("AvailableTasks() = %d tasks, want 2 (a and c)", len(available))
	}
	for _, task := range available {
		if task.ID == b.ID {
			t.Error("blocked task b reported available")
		}
	}

	a.CompleteTask()
	available = tree.AvailableTasks()
	if len(available) != 2 {
		t.Fatalf("AvailableTasks() after completing a = %d tasks, want 2 (b and c)", len(available))
	}
	for _, task := range available {
		if task.ID == a.ID {
			t.Error("done task a reported available")
		}
	}
}

func TestNextTask(t *testing.T) {
	tree := NewTaskTree("backend", "Backend", "API work")

	if tree.NextTask() != nil {
		t.Error("NextTask() on empty tree should be nil")
	}

	low := treeTask(t, "20250115001", "low", models.PriorityLow)
	critical := treeTask(t, "20250115002", "critical", models.PriorityCritical)
	high := treeTask(t, "20250115003", "high", models.PriorityHigh)
	for _, task := range []*models.Task{low, critical, high} {
		if err := tree.AddRootTask(task); err != nil {
			t.Fatal(err)
		}
	}

	next := tree.NextTask()
	if next == nil || next.ID != critical.ID {
		t.Errorf("NextTask() = %v, want the critical task", next)
	}
}

func TestTreeProgress(t *testing.T) {
	tree := NewTaskTree("backend", "Backend", "API work")
	if tree.ProgressPercentage() != 0 {
		t.Errorf("empty tree progress = %v, want 0", tree.ProgressPercentage())
	}

	a := treeTask(t, "20250115001", "a", models.PriorityMedium)
	b := treeTask(t, "20250115002", "b", models.PriorityMedium)
	for _, task := range []*models.Task{a, b} {
		if err := tree.AddRootTask(task); err != nil {
			t.Fatal(err)
		}
	}

	a.CompleteTask()
	if got := tree.CompletedTaskCount(); got != 1 {
		t.Errorf("CompletedTaskCount() = %d, want 1", got)
	}
	if got := tree.ProgressPercentage(); got != 50.0 {
		t.Errorf("ProgressPercentage() = %v, want 50.0", got)
	}
}

func TestTreeLifecycle(t *testing.T) {
	tree := NewTaskTree("backend", "Backend", "API work")
	if tree.Status != TreeStatusActive {
		t.Errorf("new tree status = %s, want active", tree.Status)
	}
	tree.Pause()
	if tree.Status != TreeStatusPaused {
		t.Errorf("status = %s, want paused", tree.Status)
	}
	tree.Resume()
	if tree.Status != TreeStatusActive {
		t.Errorf("status = %s, want active", tree.Status)
	}
	tree.Complete()
	if tree.Status != TreeStatusCompleted {
		t.Errorf("status = %s, want completed", tree.Status)
	}
	tree.Archive()
	if tree.Status != TreeStatusArchived {
		t.Errorf("status = %s, want archived", tree.Status)
	}
}

func TestTreeDependencyGraph(t *testing.T) {
	tree := NewTaskTree("backend", "Backend", "API work")

	a := treeTask(t, "20250115001", "a", models.PriorityMedium)
	b := treeTask(t, "20250115002", "b", models.PriorityMedium)
	if err := b.AddDependency(a.ID); err != nil {
		t.Fatal(err)
	}
	// Dependency on a task outside the tree must not break the graph.
	if err := b.AddDependency(models.MustTaskID("20250116001")); err != nil {
		t.Fatal(err)
	}
	for _, task := range []*models.Task{a, b} {
		if err := tree.AddRootTask(task); err != nil {
			t.Fatal(err)
		}
	}

	g, err := tree.DependencyGraph()
	if err != nil {
		t.Fatalf("DependencyGraph() error: %v", err)
	}
	if g.Size() != 2 {
		t.Errorf("graph size = %d, want 2", g.Size())
	}
	if deps := g.Dependencies(b.ID.String()); len(deps) != 1 || deps[0] != a.ID.String() {
		t.Errorf("graph deps for b = %v, want [%s]", deps, a.ID)
	}
}
