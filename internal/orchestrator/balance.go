package orchestrator

import (
	"sort"

	"taskmesh/internal/agent"
	"taskmesh/internal/project"
	"taskmesh/pkg/models"
)

// WorkloadAnalysis summarizes how work is spread across agents.
type WorkloadAnalysis struct {
	OverloadedAgents     []string           `json:"overloaded_agents"`
	UnderloadedAgents    []string           `json:"underloaded_agents"`
	AverageWorkload      float64            `json:"average_workload"`
	WorkloadDistribution map[string]float64 `json:"workload_distribution"`
}

// RebalanceRecommendation proposes moving one task between agents.
type RebalanceRecommendation struct {
	Type      string `json:"type"`
	FromAgent string `json:"from_agent"`
	ToAgent   string `json:"to_agent"`
	TaskID    string `json:"task_id"`
}

// BalanceReport is the outcome of a workload analysis. Recommendations
// are advisory; the orchestrator never moves tasks on its own.
type BalanceReport struct {
	WorkloadAnalysis           WorkloadAnalysis          `json:"workload_analysis"`
	RebalancingRecommendations []RebalanceRecommendation `json:"rebalancing_recommendations"`
}

// overloadThreshold and underloadThreshold are the default workload
// percentages bounding overloaded and underloaded agents.
const (
	defaultOverloadThreshold  = 80.0
	defaultUnderloadThreshold = 50.0
)

// BalanceWorkload analyzes agent workloads against the default
// thresholds and pairs overloaded agents with underloaded ones.
func (o *Orchestrator) BalanceWorkload(p *project.Project) BalanceReport {
	return o.BalanceWorkloadWithThresholds(p, defaultOverloadThreshold, defaultUnderloadThreshold)
}

// BalanceWorkloadWithThresholds analyzes agent workloads: agents at or
// above the overload threshold are overloaded, at or below the
// underload threshold underloaded. For each overloaded agent, a
// reassignment to an underloaded agent is suggested, but only for a
// task that agent's capabilities cover.
func (o *Orchestrator) BalanceWorkloadWithThresholds(p *project.Project, overload, underload float64) BalanceReport {
	report := BalanceReport{
		WorkloadAnalysis: WorkloadAnalysis{
			WorkloadDistribution: make(map[string]float64),
		},
	}

	agents := p.Agents()
	if len(agents) == 0 {
		return report
	}

	total := 0.0
	for _, a := range agents {
		pct := a.WorkloadPercentage()
		report.WorkloadAnalysis.WorkloadDistribution[a.ID] = pct
		total += pct

		switch {
		case pct >= overload:
			report.WorkloadAnalysis.OverloadedAgents = append(report.WorkloadAnalysis.OverloadedAgents, a.ID)
		case pct <= underload:
			report.WorkloadAnalysis.UnderloadedAgents = append(report.WorkloadAnalysis.UnderloadedAgents, a.ID)
		}
	}
	report.WorkloadAnalysis.AverageWorkload = total / float64(len(agents))

	sort.Strings(report.WorkloadAnalysis.OverloadedAgents)
	sort.Strings(report.WorkloadAnalysis.UnderloadedAgents)

	underloaded := report.WorkloadAnalysis.UnderloadedAgents
	next := 0
	for _, overloadedID := range report.WorkloadAnalysis.OverloadedAgents {
		if next >= len(underloaded) {
			break
		}
		a, err := p.Agent(overloadedID)
		if err != nil || len(a.ActiveTasks) == 0 {
			continue
		}
		dest, err := p.Agent(underloaded[next])
		if err != nil {
			continue
		}

		taskID := ""
		for _, active := range a.ActiveTasks {
			if o.canReassign(p, active, dest) {
				taskID = active
				break
			}
		}
		if taskID == "" {
			continue
		}

		report.RebalancingRecommendations = append(report.RebalancingRecommendations, RebalanceRecommendation{
			Type:      "reassign_task",
			FromAgent: overloadedID,
			ToAgent:   dest.ID,
			TaskID:    taskID,
		})
		next++
	}

	debugLog("[orchestrator] workload balance on %s: %d overloaded, %d underloaded, avg %.1f%%",
		p.ID, len(report.WorkloadAnalysis.OverloadedAgents),
		len(report.WorkloadAnalysis.UnderloadedAgents),
		report.WorkloadAnalysis.AverageWorkload)
	return report
}

// canReassign reports whether the destination agent can take over the
// active task. Tasks that cannot be located in any tree carry no text
// to judge by and pass.
func (o *Orchestrator) canReassign(p *project.Project, taskID string, dest *agent.Agent) bool {
	id, err := models.ParseTaskID(taskID)
	if err != nil {
		return true
	}
	tree, ok := p.FindTaskTree(id)
	if !ok {
		return true
	}
	task, ok := tree.Task(id)
	if !ok {
		return true
	}
	return o.strategy.CanAgentHandleTask(task, dest)
}
