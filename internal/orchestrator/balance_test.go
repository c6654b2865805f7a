package orchestrator

import (
	"testing"

	"taskmesh/internal/agent"
	"taskmesh/internal/project"
)

func TestBalanceWorkload(t *testing.T) {
	p := project.New("proj-1", "Web App", "")

	overloaded := agent.New("agent-busy", "Busy", nil)
	overloaded.MaxConcurrentTasks = 2
	overloaded.ActiveTasks = []string{"20250115001", "20250115002"}

	idle := agent.New("agent-idle", "Idle", nil)
	idle.MaxConcurrentTasks = 2

	middling := agent.New("agent-mid", "Mid", nil)
	middling.MaxConcurrentTasks = 3
	middling.ActiveTasks = []string{"20250115003", "20250115004"}

	for _, a := range []*agent.Agent{overloaded, idle, middling} {
		if err := p.RegisterAgent(a); err != nil {
			t.Fatal(err)
		}
	}

	o := newTestOrchestrator()
	report := o.BalanceWorkload(p)

	analysis := report.WorkloadAnalysis
	if len(analysis.OverloadedAgents) != 1 || analysis.OverloadedAgents[0] != "agent-busy" {
		t.Errorf("OverloadedAgents = %v", analysis.OverloadedAgents)
	}
	if len(analysis.UnderloadedAgents) != 1 || analysis.UnderloadedAgents[0] != "agent-idle" {
		t.Errorf("UnderloadedAgents = %v", analysis.UnderloadedAgents)
	}
	// 100% + 0% + 66.67% over three agents.
	if analysis.AverageWorkload < 55.0 || analysis.AverageWorkload > 56.0 {
		t.Errorf("AverageWorkload = %v", analysis.AverageWorkload)
	}
	if got := analysis.WorkloadDistribution["agent-busy"]; got != 100.0 {
		t.Errorf("distribution[agent-busy] = %v", got)
	}

	if len(report.RebalancingRecommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(report.RebalancingRecommendations))
	}
	rec := report.RebalancingRecommendations[0]
	if rec.Type != "reassign_task" || rec.FromAgent != "agent-busy" || rec.ToAgent != "agent-idle" {
		t.Errorf("recommendation = %+v", rec)
	}
	if rec.TaskID != "20250115001" {
		t.Errorf("TaskID = %q", rec.TaskID)
	}

	// Recommendations are advisory: nothing moved.
	if overloaded.CurrentWorkload() != 2 || idle.CurrentWorkload() != 0 {
		t.Error("balance mutated agent workloads")
	}
}

func TestBalanceWorkloadRespectsCapabilities(t *testing.T) {
	setup := func(t *testing.T) (*project.Project, *agent.Agent) {
		p := project.New("proj-1", "Web App", "")
		beTree, err := p.CreateTaskTree("backend_tree", "Backend work", "")
		if err != nil {
			t.Fatal(err)
		}
		addTask(t, beTree, "20250115001", "Implement REST API", "login endpoint")

		busy := agent.New("agent-busy", "Busy Backend Dev", []string{"backend_development"})
		busy.ActiveTasks = []string{"20250115001"}
		if err := p.RegisterAgent(busy); err != nil {
			t.Fatal(err)
		}
		return p, busy
	}

	t.Run("no recommendation to an incapable agent", func(t *testing.T) {
		p, _ := setup(t)
		idle := agent.New("agent-idle", "Frontend Dev", []string{"frontend_development"})
		idle.MaxConcurrentTasks = 2
		if err := p.RegisterAgent(idle); err != nil {
			t.Fatal(err)
		}

		report := newTestOrchestrator().BalanceWorkload(p)
		if len(report.RebalancingRecommendations) != 0 {
			t.Errorf("recommendations = %+v, want none for a backend task and a frontend-only agent",
				report.RebalancingRecommendations)
		}
	})

	t.Run("recommendation to a capable agent", func(t *testing.T) {
		p, _ := setup(t)
		idle := agent.New("agent-idle", "Backend Dev", []string{"backend_development"})
		idle.MaxConcurrentTasks = 2
		if err := p.RegisterAgent(idle); err != nil {
			t.Fatal(err)
		}

		report := newTestOrchestrator().BalanceWorkload(p)
		if len(report.RebalancingRecommendations) != 1 {
			t.Fatalf("got %d recommendations, want 1", len(report.RebalancingRecommendations))
		}
		rec := report.RebalancingRecommendations[0]
		if rec.ToAgent != "agent-idle" || rec.TaskID != "20250115001" {
			t.Errorf("recommendation = %+v", rec)
		}
	})

	t.Run("picks the task the agent can take", func(t *testing.T) {
		p, busy := setup(t)
		feTree, err := p.CreateTaskTree("frontend_tree", "Frontend work", "")
		if err != nil {
			t.Fatal(err)
		}
		addTask(t, feTree, "20250115002", "Build React Components", "render the header")
		busy.MaxConcurrentTasks = 2
		busy.ActiveTasks = []string{"20250115001", "20250115002"}

		idle := agent.New("agent-idle", "Frontend Dev", []string{"frontend_development"})
		idle.MaxConcurrentTasks = 2
		if err := p.RegisterAgent(idle); err != nil {
			t.Fatal(err)
		}

		report := newTestOrchestrator().BalanceWorkload(p)
		if len(report.RebalancingRecommendations) != 1 {
			t.Fatalf("got %d recommendations, want 1", len(report.RebalancingRecommendations))
		}
		if got := report.RebalancingRecommendations[0].TaskID; got != "20250115002" {
			t.Errorf("TaskID = %q, want the frontend task 20250115002", got)
		}
	})
}

func TestBalanceWorkloadEmptyProject(t *testing.T) {
	p := project.New("proj-1", "Empty", "")
	o := newTestOrchestrator()
	report := o.BalanceWorkload(p)
	if len(report.RebalancingRecommendations) != 0 {
		t.Errorf("recommendations = %v", report.RebalancingRecommendations)
	}
	if report.WorkloadAnalysis.AverageWorkload != 0 {
		t.Errorf("AverageWorkload = %v", report.WorkloadAnalysis.AverageWorkload)
	}
}

func TestBalanceWorkloadCustomThresholds(t *testing.T) {
	p := project.New("proj-1", "Web App", "")
	a := agent.New("agent-1", "A", nil)
	a.MaxConcurrentTasks = 2
	a.ActiveTasks = []string{"t"}
	if err := p.RegisterAgent(a); err != nil {
		t.Fatal(err)
	}

	o := newTestOrchestrator()

	// 50% workload: overloaded under a 40% threshold, not under 80%.
	strict := o.BalanceWorkloadWithThresholds(p, 40.0, 10.0)
	if len(strict.WorkloadAnalysis.OverloadedAgents) != 1 {
		t.Errorf("strict OverloadedAgents = %v", strict.WorkloadAnalysis.OverloadedAgents)
	}
	relaxed := o.BalanceWorkloadWithThresholds(p, 80.0, 10.0)
	if len(relaxed.WorkloadAnalysis.OverloadedAgents) != 0 {
		t.Errorf("relaxed OverloadedAgents = %v", relaxed.WorkloadAnalysis.OverloadedAgents)
	}
}
