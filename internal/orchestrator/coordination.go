package orchestrator

import (
	"sort"

	"taskmesh/internal/project"
	"taskmesh/pkg/models"
)

// CoordinationIssue flags a cross-tree dependency that needs attention.
type CoordinationIssue struct {
	Type                string `json:"type"`
	DependentTask       string `json:"dependent_task"`
	MissingPrerequisite string `json:"missing_prerequisite,omitempty"`
	PrerequisiteTask    string `json:"prerequisite_task,omitempty"`
	Recommendation      string `json:"recommendation,omitempty"`
}

// CoordinateCrossTreeDependencies inspects the project's cross-tree
// dependencies and reports problems: prerequisites that do not exist in
// any tree, and prerequisites that are neither done nor in the active
// set of the agent assigned to their tree. The check is report-only;
// nothing is mutated.
func (o *Orchestrator) CoordinateCrossTreeDependencies(p *project.Project) []CoordinationIssue {
	deps := p.CrossTreeDependencies()

	dependents := make([]string, 0, len(deps))
	for dependent := range deps {
		dependents = append(dependents, dependent)
	}
	sort.Strings(dependents)

	var issues []CoordinationIssue
	for _, dependent := range dependents {
		for _, prerequisite := range deps[dependent] {
			prereqID, err := models.ParseTaskID(prerequisite)
			if err != nil {
				issues = append(issues, CoordinationIssue{
					Type:                "missing_prerequisite",
					DependentTask:       dependent,
					MissingPrerequisite: prerequisite,
				})
				continue
			}

			tree, ok := p.FindTaskTree(prereqID)
			if !ok {
				issues = append(issues, CoordinationIssue{
					Type:                "missing_prerequisite",
					DependentTask:       dependent,
					MissingPrerequisite: prerequisite,
				})
				continue
			}

			task, _ := tree.Task(prereqID)
			if task.Status.IsDone() {
				continue
			}
			if agentWorkingOn(p, tree.ID, prerequisite) {
				continue
			}
			issues = append(issues, CoordinationIssue{
				Type:             "prerequisite_not_active",
				DependentTask:    dependent,
				PrerequisiteTask: prerequisite,
				Recommendation:   "prioritize_prerequisite",
			})
		}
	}

	debugLog("[orchestrator] cross-tree check on %s: %d issues", p.ID, len(issues))
	return issues
}

// agentWorkingOn reports whether the agent assigned to the tree lists
// the task in its active set. Unassigned trees have nobody working.
func agentWorkingOn(p *project.Project, treeID, taskID string) bool {
	agentID, ok := p.TreeAssignments()[treeID]
	if !ok {
		return false
	}
	a, err := p.Agent(agentID)
	if err != nil {
		return false
	}
	for _, active := range a.ActiveTasks {
		if active == taskID {
			return true
		}
	}
	return false
}
