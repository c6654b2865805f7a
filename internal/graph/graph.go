// Package graph provides a dependency graph over tasks, used by task
// trees for cycle detection, ordering and ready-set queries.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"taskmesh/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:    make(map[string]*models.Task),
		edges:    make(map[string][]string),
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the dependency graph from a slice of tasks. Returns an
// error if a cycle is detected or a dependency references an unknown task.
func (g *DependencyGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Build] building graph from %d tasks", len(tasks))

	g.nodes = make(map[string]*models.Task, len(tasks))
	g.edges = make(map[string][]string, len(tasks))
	for _, task := range tasks {
		g.nodes[task.ID.String()] = task
		g.edges[task.ID.String()] = nil
	}

	for _, task := range tasks {
		for _, dep := range task.Dependencies {
			if _, exists := g.nodes[dep.String()]; !exists {
				return fmt.Errorf("task %s depends on unknown task %s", task.ID, dep)
			}
			g.edges[task.ID.String()] = append(g.edges[task.ID.String()], dep.String())
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}

	g.debugLog("[graph.Build] graph built with %d nodes", len(g.nodes))
	return nil
}

// BuildSubset constructs the graph from a slice of tasks, silently
// dropping edges that point outside the slice. Used when the tasks are a
// window over a larger set, such as one tree of a project. Returns an
// error only on a cycle.
func (g *DependencyGraph) BuildSubset(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*models.Task, len(tasks))
	g.edges = make(map[string][]string, len(tasks))
	for _, task := range tasks {
		g.nodes[task.ID.String()] = task
		g.edges[task.ID.String()] = nil
	}

	for _, task := range tasks {
		for _, dep := range task.Dependencies {
			if _, exists := g.nodes[dep.String()]; !exists {
				continue
			}
			g.edges[task.ID.String()] = append(g.edges[task.ID.String()], dep.String())
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// hasCycleLocked assumes the lock is held.
func (g *DependencyGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Back edge: cycle.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// TopologicalSort returns task IDs ordered so every dependency comes
// before the tasks that depend on it. Ties break lexicographically so
// the order is stable. Returns an error if the graph contains a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visited := make(map[string]bool, len(g.nodes))
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depID := range g.edges[id] {
			visit(depID)
		}
		result = append(result, id)
	}

	for _, id := range ids {
		visit(id)
	}
	return result, nil
}

// Ready returns IDs of tasks that are not terminal and whose dependencies
// have all reached done. These can be worked on in parallel.
func (g *DependencyGraph) Ready() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for id, task := range g.nodes {
		if task.Status.IsTerminal() {
			continue
		}

		satisfied := true
		for _, depID := range g.edges[id] {
			dep, exists := g.nodes[depID]
			if !exists || !dep.Status.IsDone() {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, id)
		}
	}

	sort.Strings(ready)
	g.debugLog("[graph.Ready] %d of %d tasks ready", len(ready), len(g.nodes))
	return ready
}

// Task returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) Task(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the IDs of tasks the given task depends on.
func (g *DependencyGraph) Dependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[taskID]
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for id, deps := range g.edges {
		for _, depID := range deps {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents
}

// Edges returns a copy of the adjacency map, keyed by task ID.
func (g *DependencyGraph) Edges() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string][]string, len(g.edges))
	for id, deps := range g.edges {
		out[id] = append([]string(nil), deps...)
	}
	return out
}
