package orchestrator

import (
	"sort"
	"strings"

	"taskmesh/internal/agent"
	"taskmesh/internal/project"
	"taskmesh/pkg/models"
)

// AssignmentStrategy decides which agent should own which task tree and
// which task an agent should pick up next. Strategies only propose;
// the orchestrator applies the proposals to the project.
type AssignmentStrategy interface {
	// AssignTrees proposes agents for currently unassigned trees,
	// returning tree ID -> agent ID.
	AssignTrees(p *project.Project) map[string]string
	// PrioritizeTasks picks the task the agent should work on next from
	// the given candidates, or nil when there are none.
	PrioritizeTasks(tasks []*models.Task, a *agent.Agent) *models.Task
	// CanAgentHandleTask reports whether the agent's capabilities cover
	// the kind of work the task describes.
	CanAgentHandleTask(task *models.Task, a *agent.Agent) bool
}

// CapabilityBasedStrategy matches trees to agents through a keyword
// table: the titles and descriptions of a tree's tasks are scanned for
// keywords to infer the capabilities it needs, and only agents holding
// one of them are candidates.
type CapabilityBasedStrategy struct {
	// keywords maps capability name to the task-text keywords implying it.
	keywords map[string][]string
}

// NewCapabilityBasedStrategy creates a strategy around a capability
// keyword table, typically from config.
func NewCapabilityBasedStrategy(keywords map[string][]string) *CapabilityBasedStrategy {
	return &CapabilityBasedStrategy{keywords: keywords}
}

// generalCapability marks work that matched no keyword; any agent can
// take it.
const generalCapability = "general"

// capabilitiesForText scans lowercase text for capability keywords and
// returns the matching capabilities, sorted. An empty result means the
// work is general.
func (s *CapabilityBasedStrategy) capabilitiesForText(text string) []string {
	text = strings.ToLower(text)

	names := make([]string, 0, len(s.keywords))
	for capability := range s.keywords {
		names = append(names, capability)
	}
	sort.Strings(names)

	var matched []string
	for _, capability := range names {
		for _, kw := range s.keywords[capability] {
			if strings.Contains(text, kw) {
				matched = append(matched, capability)
				break
			}
		}
	}
	return matched
}

// RequiredCapabilities infers the capabilities a tree needs from the
// titles and descriptions of all its tasks. An empty result means the
// tree is general work any agent can take.
func (s *CapabilityBasedStrategy) RequiredCapabilities(tree *project.TaskTree) []string {
	var text strings.Builder
	for _, task := range tree.AllTasks() {
		text.WriteString(task.Title)
		text.WriteByte(' ')
		text.WriteString(task.Description)
		text.WriteByte(' ')
	}
	return s.capabilitiesForText(text.String())
}

// CanAgentHandleTask reports whether the agent can take the task: the
// task's title and description are scanned for capability keywords, and
// the agent must hold at least one of the matched capabilities. Tasks
// matching no keyword are general and any agent can take them.
func (s *CapabilityBasedStrategy) CanAgentHandleTask(task *models.Task, a *agent.Agent) bool {
	required := s.capabilitiesForText(task.Title + " " + task.Description)
	if len(required) == 0 {
		return true
	}
	for _, capability := range required {
		if a.HasCapability(capability) {
			return true
		}
	}
	return false
}

// scoreAgent rates how well an agent fits a capability requirement:
// base 50, up to 30 for capability coverage and up to 20 for idleness.
func scoreAgent(a *agent.Agent, required []string) float64 {
	score := 50.0
	if len(required) > 0 {
		covered := 0
		for _, capability := range required {
			if a.HasCapability(capability) {
				covered++
			}
		}
		score += 30.0 * float64(covered) / float64(len(required))
	}
	score += (100.0 - a.WorkloadPercentage()) / 100.0 * 20.0
	return score
}

// hasAnyCapability reports whether the agent holds at least one of the
// wanted capabilities.
func hasAnyCapability(a *agent.Agent, wanted []string) bool {
	for _, capability := range wanted {
		if a.HasCapability(capability) {
			return true
		}
	}
	return false
}

// AssignTrees proposes one available agent for every unassigned active
// tree. Trees whose tasks need capabilities no available agent has stay
// unassigned. Ties break toward the less loaded agent, then by ID.
func (s *CapabilityBasedStrategy) AssignTrees(p *project.Project) map[string]string {
	assignments := make(map[string]string)
	existing := p.TreeAssignments()

	available := make([]*agent.Agent, 0)
	for _, a := range p.Agents() {
		if a.Status == agent.StatusAvailable {
			available = append(available, a)
		}
	}
	if len(available) == 0 {
		return assignments
	}

	for _, tree := range p.Trees() {
		if tree.Status != project.TreeStatusActive {
			continue
		}
		if _, taken := existing[tree.ID]; taken {
			continue
		}

		required := s.RequiredCapabilities(tree)
		if len(required) == 0 {
			debugLog("[strategy.AssignTrees] tree %s (%q) needs capability %s", tree.ID, tree.Name, generalCapability)
		} else {
			debugLog("[strategy.AssignTrees] tree %s (%q) needs capabilities %v", tree.ID, tree.Name, required)
		}

		var best *agent.Agent
		var bestScore float64
		for _, a := range available {
			if len(required) > 0 && !hasAnyCapability(a, required) {
				continue
			}
			score := scoreAgent(a, required)
			if best == nil || score > bestScore ||
				(score == bestScore && betterTiebreak(a, best)) {
				best = a
				bestScore = score
			}
		}

		if best != nil {
			assignments[tree.ID] = best.ID
			debugLog("[strategy.AssignTrees] tree %s -> agent %s (score %.1f)", tree.ID, best.ID, bestScore)
		} else {
			debugLog("[strategy.AssignTrees] tree %s left unassigned, no capable agent", tree.ID)
		}
	}
	return assignments
}

// betterTiebreak prefers the less loaded agent, then the smaller ID.
func betterTiebreak(a, b *agent.Agent) bool {
	if a.WorkloadPercentage() != b.WorkloadPercentage() {
		return a.WorkloadPercentage() < b.WorkloadPercentage()
	}
	return a.ID < b.ID
}

// PrioritizeTasks picks the next task for an agent: tasks at the
// agent's preferred priority level come first, then higher priority,
// then oldest created first.
func (s *CapabilityBasedStrategy) PrioritizeTasks(tasks []*models.Task, a *agent.Agent) *models.Task {
	if len(tasks) == 0 {
		return nil
	}

	ranked := append([]*models.Task(nil), tasks...)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := matchesPreference(ranked[i], a), matchesPreference(ranked[j], a)
		if pi != pj {
			return pi
		}
		if ranked[i].Priority.Order() != ranked[j].Priority.Order() {
			return ranked[j].Priority.Less(ranked[i].Priority)
		}
		return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
	})
	return ranked[0]
}

// matchesPreference reports whether the task sits at the agent's
// preferred priority level. Agents without a preference match nothing.
func matchesPreference(task *models.Task, a *agent.Agent) bool {
	return a.PriorityPreference != "" && task.Priority == a.PriorityPreference
}
