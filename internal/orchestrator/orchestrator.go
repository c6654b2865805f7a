package orchestrator

import (
	"sort"
	"time"

	"taskmesh/internal/agent"
	"taskmesh/internal/project"
)

// Report summarizes one orchestration cycle over a project.
// AgentRecommendations carries an entry for every agent holding a tree
// assignment; a nil value records that the agent has nothing to pick up.
type Report struct {
	OrchestrationTimestamp time.Time          `json:"orchestration_timestamp"`
	ProjectID              string             `json:"project_id"`
	NewAssignments         map[string]string  `json:"new_assignments"`
	AgentRecommendations   map[string]*string `json:"agent_recommendations"`
	ConflictsDetected      int                `json:"conflicts_detected"`
	ConflictsResolved      int                `json:"conflicts_resolved"`
	ActiveSessions         int                `json:"active_sessions"`
	AvailableAgents        int                `json:"available_agents"`
}

// Conflict records one pair of sessions holding the same resource.
type Conflict struct {
	Type                string   `json:"type"`
	Resource            string   `json:"resource"`
	ConflictingSessions []string `json:"conflicting_sessions"`
}

// Orchestrator runs coordination cycles over projects. It owns no state
// of its own beyond the strategy and logger; all project state lives in
// the project.
type Orchestrator struct {
	strategy AssignmentStrategy
	logger   *DebugLogger
}

// New creates an orchestrator with the given assignment strategy. A nil
// logger disables debug logging.
func New(strategy AssignmentStrategy, logger *DebugLogger) *Orchestrator {
	if logger == nil {
		logger = NopLogger()
	}
	setPackageLogger(logger)
	return &Orchestrator{strategy: strategy, logger: logger}
}

// OrchestrateProject runs one full cycle: session timeout sweep, tree
// assignment, per-agent task recommendations and conflict handling.
// Empty outcomes (no agents, no trees, nothing to do) are normal and
// never errors.
func (o *Orchestrator) OrchestrateProject(p *project.Project) Report {
	report := Report{
		OrchestrationTimestamp: time.Now(),
		ProjectID:              p.ID,
		NewAssignments:         make(map[string]string),
		AgentRecommendations:   make(map[string]*string),
	}

	timedOut := o.sweepTimeouts(p)
	debugLog("[orchestrator] project %s: %d sessions timed out", p.ID, timedOut)

	conflicts := o.DetectResourceConflicts(p)
	report.ConflictsDetected = len(conflicts)

	for treeID, agentID := range o.strategy.AssignTrees(p) {
		if err := p.AssignTreeToAgent(treeID, agentID); err != nil {
			debugLog("[orchestrator] assignment %s -> %s rejected: %v", treeID, agentID, err)
			continue
		}
		report.NewAssignments[treeID] = agentID
	}

	for _, a := range p.Agents() {
		if len(a.AssignedTrees) == 0 {
			continue
		}
		tasks, err := p.AvailableWorkForAgent(a.ID)
		if err != nil {
			continue
		}
		if task := o.strategy.PrioritizeTasks(tasks, a); task != nil {
			id := task.ID.String()
			report.AgentRecommendations[a.ID] = &id
		} else {
			report.AgentRecommendations[a.ID] = nil
		}
	}

	report.ConflictsResolved = o.ResolveResourceConflicts(p, conflicts)

	report.ActiveSessions = len(p.Sessions())
	for _, a := range p.Agents() {
		if a.Status == agent.StatusAvailable {
			report.AvailableAgents++
		}
	}

	debugLog("[orchestrator] project %s: %d new assignments, %d recommendations, %d/%d conflicts resolved",
		p.ID, len(report.NewAssignments), len(report.AgentRecommendations),
		report.ConflictsResolved, report.ConflictsDetected)
	return report
}

// sweepTimeouts ends every session that exceeded its maximum duration
// and returns how many were ended.
func (o *Orchestrator) sweepTimeouts(p *project.Project) int {
	count := 0
	for _, session := range p.Sessions() {
		if !session.IsTimeoutDue() {
			continue
		}
		if err := p.TimeoutWorkSession(session.ID); err != nil {
			debugLog("[orchestrator] timeout of session %s failed: %v", session.ID, err)
			continue
		}
		debugLog("[orchestrator] session %s timed out (agent %s, task %s)",
			session.ID, session.AgentID, session.TaskID)
		count++
	}
	return count
}

// DetectResourceConflicts finds resources held by more than one active
// session: one conflict record per pair of sessions contesting a
// resource, so three holders of one resource yield three conflicts.
func (o *Orchestrator) DetectResourceConflicts(p *project.Project) []Conflict {
	locks := p.ResourceLocks()

	resources := make([]string, 0, len(locks))
	for resource, holders := range locks {
		if len(holders) > 1 {
			resources = append(resources, resource)
		}
	}
	sort.Strings(resources)

	var conflicts []Conflict
	for _, resource := range resources {
		holders := locks[resource]
		for i := 0; i < len(holders); i++ {
			for j := i + 1; j < len(holders); j++ {
				conflicts = append(conflicts, Conflict{
					Type:                "resource_conflict",
					Resource:            resource,
					ConflictingSessions: []string{holders[i], holders[j]},
				})
			}
		}
	}
	return conflicts
}

// ResolveResourceConflicts releases contested resources from every
// session except the oldest holder: whoever started first keeps the
// lock. Returns how many conflicts were resolved.
func (o *Orchestrator) ResolveResourceConflicts(p *project.Project, conflicts []Conflict) int {
	resolved := 0
	for _, conflict := range conflicts {
		var holders []*project.WorkSession
		for _, sessionID := range conflict.ConflictingSessions {
			if session, ok := p.Session(sessionID); ok {
				holders = append(holders, session)
			}
		}
		if len(holders) < 2 {
			continue
		}

		sort.Slice(holders, func(i, j int) bool {
			if holders[i].StartedAt.Equal(holders[j].StartedAt) {
				return holders[i].ID < holders[j].ID
			}
			return holders[i].StartedAt.Before(holders[j].StartedAt)
		})

		for _, session := range holders[1:] {
			session.UnlockResource(conflict.Resource)
			debugLog("[orchestrator] conflict on %s: session %s released (keeper %s)",
				conflict.Resource, session.ID, holders[0].ID)
		}
		resolved++
	}
	return resolved
}
