package workflow

import (
	"github.com/BuildFund/New-Main-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrDependencyCycle is returned when an edge would make a task
// transitively depend on itself.
var ErrDependencyCycle = errors.New("dependency would create a cycle")

// Graph is the task dependency DAG of one deal, held as adjacency lists
// keyed by task ID. deps[t] lists the tasks t depends on; dependents is
// the reverse index used for unblock cascades.
type Graph struct {
	deps       map[uuid.UUID][]uuid.UUID
	dependents map[uuid.UUID][]uuid.UUID
}

// NewGraph builds a Graph from persisted dependency edges.
func NewGraph(edges []models.TaskDependency) *Graph {
	g := &Graph{
		deps:       make(map[uuid.UUID][]uuid.UUID),
		dependents: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, e := range edges {
		g.deps[e.TaskID] = append(g.deps[e.TaskID], e.DependsOnID)
		g.dependents[e.DependsOnID] = append(g.dependents[e.DependsOnID], e.TaskID)
	}
	return g
}

// AddEdge records that task depends on dependsOn, rejecting self-edges
// and edges that would create a cycle.
func (g *Graph) AddEdge(task, dependsOn uuid.UUID) error {
	if task == dependsOn {
		return ErrDependencyCycle
	}
	// A cycle appears iff task is already reachable from dependsOn.
	if g.reachable(dependsOn, task) {
		return ErrDependencyCycle
	}
	g.deps[task] = append(g.deps[task], dependsOn)
	g.dependents[dependsOn] = append(g.dependents[dependsOn], task)
	return nil
}

// Dependencies returns the direct dependencies of a task.
func (g *Graph) Dependencies(task uuid.UUID) []uuid.UUID {
	return g.deps[task]
}

// Dependents returns the tasks directly depending on the given task.
func (g *Graph) Dependents(task uuid.UUID) []uuid.UUID {
	return g.dependents[task]
}

// reachable walks the dependency edges depth-first from start looking
// for target.
func (g *Graph) reachable(start, target uuid.UUID) bool {
	seen := make(map[uuid.UUID]bool)
	stack := []uuid.UUID{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == target {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.deps[n]...)
	}
	return false
}

// Blocking returns, out of the given dependency IDs, those whose task is
// not yet completed (cancelled counts as resolved). The caller supplies
// a status lookup so the graph stays persistence-free.
func Blocking(depIDs []uuid.UUID, status func(uuid.UUID) models.TaskStatus) []uuid.UUID {
	var blocking []uuid.UUID
	for _, id := range depIDs {
		switch status(id) {
		case models.TaskCompleted, models.TaskCancelled:
		default:
			blocking = append(blocking, id)
		}
	}
	return blocking
}
