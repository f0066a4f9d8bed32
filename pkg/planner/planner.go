// Package planner computes the execution order of a workflow graph from its
// MAIN connections. AI_TOOL and AI_MEMORY edges share data, not sequencing,
// and are ignored here.
package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/weftworks/weft/pkg/models"
)

// CycleError reports a circular MAIN-connection dependency. Members holds
// every node id on the cycle, in walk order.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("workflow contains a cycle: %s", strings.Join(e.Members, " -> "))
}

// graph is the MAIN-edge adjacency of a workflow, by node id.
type graph struct {
	order    []string            // node ids in declaration order
	children map[string][]string // edges, source id -> target ids
	inDegree map[string]int
}

func buildGraph(w *models.Workflow) *graph {
	g := &graph{
		order:    make([]string, 0, len(w.Nodes)),
		children: make(map[string][]string),
		inDegree: make(map[string]int),
	}

	triggers := make(map[string]bool, len(w.Triggers))
	for _, id := range w.Triggers {
		triggers[id] = true
	}

	for _, n := range w.Nodes {
		g.order = append(g.order, n.ID)
		g.inDegree[n.ID] = 0
	}

	for _, source := range w.Nodes {
		for _, conn := range w.ConnectionsFrom(source.Name, models.ConnectionTypeMain) {
			target := w.NodeByName(conn.TargetNode)
			if target == nil {
				continue // dangling targets are the validator's finding, not ours
			}

			g.children[source.ID] = append(g.children[source.ID], target.ID)

			// Trigger nodes are ordering roots regardless of in-degree.
			if !triggers[target.ID] && !target.IsTrigger() {
				g.inDegree[target.ID]++
			}
		}
	}

	return g
}

// Plan returns a topological order of all node ids, or a *CycleError. The
// tie-break among ready nodes follows declaration order in workflow.Nodes,
// so the result is deterministic for a given definition.
func Plan(w *models.Workflow) ([]string, error) {
	g := buildGraph(w)

	remaining := make(map[string]int, len(g.inDegree))
	for id, deg := range g.inDegree {
		remaining[id] = deg
	}

	planned := make([]string, 0, len(g.order))
	emitted := make(map[string]bool, len(g.order))

	for len(planned) < len(g.order) {
		progressed := false

		for _, id := range g.order {
			if emitted[id] || remaining[id] > 0 {
				continue
			}

			planned = append(planned, id)
			emitted[id] = true
			progressed = true

			for _, child := range g.children[id] {
				remaining[child]--
			}

			break
		}

		if !progressed {
			return nil, &CycleError{Members: g.findCycle(emitted)}
		}
	}

	return planned, nil
}

// findCycle walks the unplanned subgraph with an explicit recursion stack
// and returns the full member list of the first cycle found.
func (g *graph) findCycle(emitted map[string]bool) []string {
	const (
		white = 0
		grey  = 1
		black = 2
	)

	color := make(map[string]int, len(g.order))

	var stack []string

	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		stack = append(stack, id)

		for _, child := range g.children[id] {
			if emitted[child] {
				continue
			}

			switch color[child] {
			case grey:
				// Back edge: the cycle is the stack suffix from child.
				for i, member := range stack {
					if member == child {
						cycle = append(cycle, stack[i:]...)

						break
					}
				}

				return true
			case white:
				if visit(child) {
					return true
				}
			}
		}

		color[id] = black
		stack = stack[:len(stack)-1]

		return false
	}

	for _, id := range g.order {
		if emitted[id] || color[id] != white {
			continue
		}

		if visit(id) {
			return cycle
		}
	}

	return nil
}

// HasCycle returns the members of a MAIN-subgraph cycle, or nil when the
// graph is acyclic. Used by the validator.
func HasCycle(w *models.Workflow) []string {
	_, err := Plan(w)

	var cycleErr *CycleError
	if errors.As(err, &cycleErr) {
		return cycleErr.Members
	}

	return nil
}
