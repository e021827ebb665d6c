package workflow

import (
	"fmt"

	"maestro-ai/internal/domain"
)

// stepGraph is the validated form of a workflow definition: an arena of
// steps indexed by name, with child indices derived from Dependencies and
// conditions parsed up front. Building it is the configuration-error
// boundary — a definition that produces a stepGraph is structurally sound.
type stepGraph struct {
	steps      []domain.WorkflowStep
	index      map[string]int
	children   [][]int
	roots      []int
	conditions []*Condition // parallel to steps; nil when a step has no condition
}

var validTypes = map[domain.WorkflowType]bool{
	domain.WorkflowSequential:   true,
	domain.WorkflowParallel:     true,
	domain.WorkflowConditional:  true,
	domain.WorkflowHierarchical: true,
}

// buildGraph validates def and derives its dependency topology. It rejects
// unknown workflow types, empty or duplicate step names, dependencies on
// nonexistent steps, unparseable conditions, and dependency cycles.
func buildGraph(def domain.WorkflowDefinition) (*stepGraph, error) {
	const op = "buildGraph"

	if !validTypes[def.Type] {
		return nil, domain.NewDomainError(op, domain.ErrUnknownWorkflowType, string(def.Type))
	}
	if len(def.Steps) == 0 {
		return nil, domain.NewSubSystemError("workflow", op, domain.ErrInvalidInput,
			fmt.Sprintf("workflow %q has no steps", def.Name))
	}

	g := &stepGraph{
		steps:      def.Steps,
		index:      make(map[string]int, len(def.Steps)),
		children:   make([][]int, len(def.Steps)),
		conditions: make([]*Condition, len(def.Steps)),
	}

	for i, s := range def.Steps {
		if s.Name == "" {
			return nil, domain.NewSubSystemError("workflow", op, domain.ErrInvalidInput,
				fmt.Sprintf("step[%d] has no name", i))
		}
		if _, dup := g.index[s.Name]; dup {
			return nil, domain.NewSubSystemError("workflow", op, domain.ErrInvalidInput,
				fmt.Sprintf("duplicate step name %q", s.Name))
		}
		g.index[s.Name] = i
	}

	for i, s := range def.Steps {
		for _, dep := range s.Dependencies {
			parent, ok := g.index[dep]
			if !ok {
				return nil, domain.NewSubSystemError("workflow", op, domain.ErrInvalidInput,
					fmt.Sprintf("step %q depends on unknown step %q", s.Name, dep))
			}
			g.children[parent] = append(g.children[parent], i)
		}
		if len(s.Dependencies) == 0 {
			g.roots = append(g.roots, i)
		}
		if s.Condition != "" {
			cond, err := ParseCondition(s.Condition)
			if err != nil {
				return nil, err
			}
			g.conditions[i] = cond
		}
	}

	if cycle := findCycle(g); cycle != "" {
		return nil, domain.NewDomainError(op, domain.ErrDependencyCycle, cycle)
	}

	return g, nil
}

// findCycle runs a three-color DFS over the dependency edges and returns the
// name of a step on a cycle, or "" when the graph is acyclic.
func findCycle(g *stepGraph) string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make([]int, len(g.steps))

	var visit func(int) int
	visit = func(i int) int {
		color[i] = gray
		for _, child := range g.children[i] {
			switch color[child] {
			case gray:
				return child
			case white:
				if bad := visit(child); bad >= 0 {
					return bad
				}
			}
		}
		color[i] = black
		return -1
	}

	for i := range g.steps {
		if color[i] == white {
			if bad := visit(i); bad >= 0 {
				return g.steps[bad].Name
			}
		}
	}
	return ""
}
