package project

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"taskmesh/internal/agent"
	"taskmesh/pkg/models"
)

// Project coordinates task trees, agents, work sessions and cross-tree
// dependencies. All mutation goes through its methods; the internal
// mutex makes each operation atomic.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	mu              sync.Mutex
	trees           map[string]*TaskTree
	agents          map[string]*agent.Agent
	treeAssignments map[string]string // tree ID -> agent ID
	sessions        map[string]*WorkSession
	crossTreeDeps   map[string][]string // dependent task ID -> prerequisite task IDs
}

// New creates an empty project.
func New(id, name, description string) *Project {
	now := time.Now()
	return &Project{
		ID:              id,
		Name:            name,
		Description:     description,
		CreatedAt:       now,
		UpdatedAt:       now,
		trees:           make(map[string]*TaskTree),
		agents:          make(map[string]*agent.Agent),
		treeAssignments: make(map[string]string),
		sessions:        make(map[string]*WorkSession),
		crossTreeDeps:   make(map[string][]string),
	}
}

func (p *Project) touch() { p.UpdatedAt = time.Now() }

// CreateTaskTree adds a new empty tree to the project.
func (p *Project) CreateTaskTree(id, name, description string) (*TaskTree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.trees[id]; exists {
		return nil, fmt.Errorf("Task tree %s already exists", id)
	}
	tree := NewTaskTree(id, name, description)
	p.trees[id] = tree
	p.touch()
	return tree, nil
}

// TaskTree returns the tree with the given ID.
func (p *Project) TaskTree(id string) (*TaskTree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.treeLocked(id)
}

func (p *Project) treeLocked(id string) (*TaskTree, error) {
	tree, ok := p.trees[id]
	if !ok {
		return nil, fmt.Errorf("Task tree %s not found", id)
	}
	return tree, nil
}

// Trees returns all trees ordered by ID.
func (p *Project) Trees() []*TaskTree {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.trees))
	for id := range p.trees {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	trees := make([]*TaskTree, 0, len(ids))
	for _, id := range ids {
		trees = append(trees, p.trees[id])
	}
	return trees
}

// RegisterAgent adds an agent to the project's pool.
func (p *Project) RegisterAgent(a *agent.Agent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.agents[a.ID]; exists {
		return fmt.Errorf("Agent %s already registered", a.ID)
	}
	p.agents[a.ID] = a
	a.AssignToProject(p.ID)
	p.touch()
	return nil
}

// Agent returns the registered agent with the given ID.
func (p *Project) Agent(id string) (*agent.Agent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agentLocked(id)
}

func (p *Project) agentLocked(id string) (*agent.Agent, error) {
	a, ok := p.agents[id]
	if !ok {
		return nil, fmt.Errorf("Agent %s not registered", id)
	}
	return a, nil
}

// Agents returns all registered agents ordered by ID.
func (p *Project) Agents() []*agent.Agent {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.agents))
	for id := range p.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	agents := make([]*agent.Agent, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, p.agents[id])
	}
	return agents
}

// AssignTreeToAgent gives one agent responsibility for a whole tree.
// A tree can only be assigned to one agent at a time; re-assigning it
// to the agent that already holds it is a no-op.
func (p *Project) AssignTreeToAgent(treeID, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.agentLocked(agentID)
	if err != nil {
		return err
	}
	if _, err := p.treeLocked(treeID); err != nil {
		return err
	}
	if assigned, ok := p.treeAssignments[treeID]; ok {
		if assigned == agentID {
			return nil
		}
		return fmt.Errorf("Task tree %s already assigned to agent %s", treeID, assigned)
	}

	p.treeAssignments[treeID] = agentID
	a.AssignToTree(treeID)
	p.touch()
	return nil
}

// UnassignTree removes the tree's agent assignment, if any.
func (p *Project) UnassignTree(treeID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.treeAssignments, treeID)
	p.touch()
}

// TreeAssignments returns a copy of the tree -> agent assignment map.
func (p *Project) TreeAssignments() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]string, len(p.treeAssignments))
	for tree, ag := range p.treeAssignments {
		out[tree] = ag
	}
	return out
}

// FindTaskTree returns the tree containing the given task.
func (p *Project) FindTaskTree(taskID models.TaskID) (*TaskTree, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findTreeLocked(taskID)
}

func (p *Project) findTreeLocked(taskID models.TaskID) (*TaskTree, bool) {
	for _, tree := range p.trees {
		if tree.HasTask(taskID) {
			return tree, true
		}
	}
	return nil, false
}

// AddCrossTreeDependency records that a task in one tree must wait for a
// task in another tree. Same-tree pairs are rejected; those belong on
// the task itself. The prerequisite may be absent from every tree; the
// dangling entry is kept and surfaces through the coordination check.
func (p *Project) AddCrossTreeDependency(dependent, prerequisite models.TaskID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	depTree, ok := p.findTreeLocked(dependent)
	if !ok {
		return fmt.Errorf("Task %s not found in any tree", dependent)
	}
	if preTree, ok := p.findTreeLocked(prerequisite); ok && depTree.ID == preTree.ID {
		return fmt.Errorf("Use regular task dependencies for tasks within the same tree")
	}

	key := dependent.String()
	for _, existing := range p.crossTreeDeps[key] {
		if existing == prerequisite.String() {
			return nil
		}
	}
	p.crossTreeDeps[key] = append(p.crossTreeDeps[key], prerequisite.String())
	p.touch()
	return nil
}

// CrossTreeDependencies returns a copy of the dependent -> prerequisites map.
func (p *Project) CrossTreeDependencies() map[string][]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string][]string, len(p.crossTreeDeps))
	for dep, pres := range p.crossTreeDeps {
		out[dep] = append([]string(nil), pres...)
	}
	return out
}

// StartWorkSession opens a session for an agent on a task. The agent
// must be registered and available, the task must exist, and the task's
// tree must be assigned to that agent.
func (p *Project) StartWorkSession(agentID string, taskID models.TaskID, maxDuration time.Duration) (*WorkSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.agentLocked(agentID)
	if err != nil {
		return nil, err
	}
	tree, ok := p.findTreeLocked(taskID)
	if !ok {
		return nil, fmt.Errorf("Task %s not found in any tree", taskID)
	}
	if assigned, ok := p.treeAssignments[tree.ID]; !ok || assigned != agentID {
		return nil, fmt.Errorf("Task tree %s not assigned to agent %s", tree.ID, agentID)
	}
	if err := a.StartTask(taskID); err != nil {
		return nil, err
	}

	session := NewWorkSession(agentID, taskID, tree.ID, maxDuration)
	p.sessions[session.ID] = session
	p.touch()
	return session, nil
}

// CompleteWorkSession ends a session, records the outcome on the agent
// and releases all resources.
func (p *Project) CompleteWorkSession(sessionID string, success bool, notes string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, ok := p.sessions[sessionID]
	if !ok {
		return fmt.Errorf("Work session %s not found", sessionID)
	}
	if err := session.Complete(success, notes); err != nil {
		return err
	}
	if a, err := p.agentLocked(session.AgentID); err == nil {
		if err := a.CompleteTask(session.TaskID, success); err != nil {
			return err
		}
	}
	delete(p.sessions, sessionID)
	p.touch()
	return nil
}

// TimeoutWorkSession ends a session as timed out: resources are
// released, the task leaves the agent's active set without touching its
// track record, and the session is dropped.
func (p *Project) TimeoutWorkSession(sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, ok := p.sessions[sessionID]
	if !ok {
		return fmt.Errorf("Work session %s not found", sessionID)
	}
	session.MarkTimedOut()
	if a, err := p.agentLocked(session.AgentID); err == nil {
		a.AbandonTask(session.TaskID)
	}
	delete(p.sessions, sessionID)
	p.touch()
	return nil
}

// Session returns the active session with the given ID.
func (p *Project) Session(sessionID string) (*WorkSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[sessionID]
	return s, ok
}

// Sessions returns the active sessions, oldest first.
func (p *Project) Sessions() []*WorkSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	sessions := make([]*WorkSession, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions
}

// AvailableWorkForAgent returns the available tasks across every tree
// assigned to the agent.
func (p *Project) AvailableWorkForAgent(agentID string) ([]*models.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.agentLocked(agentID); err != nil {
		return nil, err
	}

	treeIDs := make([]string, 0)
	for treeID, assigned := range p.treeAssignments {
		if assigned == agentID {
			treeIDs = append(treeIDs, treeID)
		}
	}
	sort.Strings(treeIDs)

	var tasks []*models.Task
	for _, treeID := range treeIDs {
		if tree, ok := p.trees[treeID]; ok {
			tasks = append(tasks, tree.AvailableTasks()...)
		}
	}
	return tasks, nil
}

// ResourceLocks returns a derived view of which sessions hold which
// resources: resource name -> session IDs, sorted.
func (p *Project) ResourceLocks() map[string][]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	locks := make(map[string][]string)
	for _, session := range p.sessions {
		for _, resource := range session.LockedResources() {
			locks[resource] = append(locks[resource], session.ID)
		}
	}
	for resource := range locks {
		sort.Strings(locks[resource])
	}
	return locks
}

// OrchestrationStatus returns a full snapshot of the project's
// coordination state for reports.
func (p *Project) OrchestrationStatus() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	treeSummaries := make(map[string]any, len(p.trees))
	for id, tree := range p.trees {
		treeSummaries[id] = map[string]any{
			"name":            tree.Name,
			"assigned_agent":  p.treeAssignments[id],
			"total_tasks":     tree.TaskCount(),
			"completed_tasks": tree.CompletedTaskCount(),
			"progress":        tree.ProgressPercentage(),
		}
	}

	agentSummaries := make(map[string]any, len(p.agents))
	for id, a := range p.agents {
		agentSummaries[id] = map[string]any{
			"name":           a.Name,
			"status":         string(a.Status),
			"assigned_trees": append([]string(nil), a.AssignedTrees...),
		}
	}

	lockCount := 0
	for _, session := range p.sessions {
		lockCount += len(session.LockedResources())
	}

	return map[string]any{
		"project_id":              p.ID,
		"project_name":            p.Name,
		"total_trees":             len(p.trees),
		"registered_agents":       len(p.agents),
		"active_assignments":      len(p.treeAssignments),
		"active_sessions":         len(p.sessions),
		"cross_tree_dependencies": len(p.crossTreeDeps),
		"resource_locks":          lockCount,
		"trees":                   treeSummaries,
		"agents":                  agentSummaries,
	}
}
