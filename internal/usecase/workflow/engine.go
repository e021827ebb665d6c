// Package workflow interprets workflow definitions and drives step execution
// across the four execution strategies: sequential, parallel, conditional,
// and hierarchical.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"maestro-ai/internal/domain"
	"maestro-ai/internal/infra/tracer"
)

// AgentSource supplies registered agents by type. Implemented by the
// registry.
type AgentSource interface {
	AgentsOfType(t domain.AgentType) []domain.Agent
}

// AgentPicker scores candidates for a task descriptor and returns the best
// one. Implemented by the selector.
type AgentPicker interface {
	SelectBest(task string, candidates []domain.Agent) (domain.Agent, error)
}

// Engine executes workflow definitions. Each workflow type is a distinct
// strategy over the same step/result primitives; the only shared state
// machine is pending → running → completed(success|error) per step.
type Engine struct {
	agents   AgentSource
	picker   AgentPicker
	executor *StepExecutor
	logger   *slog.Logger
}

// NewEngine creates an Engine. A nil logger discards output.
func NewEngine(agents AgentSource, picker AgentPicker, executor *StepExecutor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{agents: agents, picker: picker, executor: executor, logger: logger}
}

// Execute runs def to completion and returns a structured result. Only
// configuration errors (unknown type, unknown dependency, dependency cycle)
// return a non-nil error; step-level failures land in result.Errors and the
// workflow always runs as far as its strategy allows.
func (e *Engine) Execute(ctx context.Context, def domain.WorkflowDefinition) (*domain.WorkflowResult, error) {
	g, err := buildGraph(def)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.StartSpan(ctx, "workflow.execute",
		tracer.WithAttrs(
			tracer.StringAttr("workflow.name", def.Name),
			tracer.StringAttr("workflow.type", string(def.Type)),
		))
	defer span.End()

	if def.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, def.Timeout)
		defer cancel()
	}

	res := &domain.WorkflowResult{
		RunID:     NewRunID(),
		Workflow:  def.Name,
		Type:      def.Type,
		Results:   make(map[string]domain.StepResult, len(def.Steps)),
		StartedAt: time.Now(),
	}

	e.logger.Info("workflow started",
		"run_id", res.RunID,
		"workflow", def.Name,
		"type", string(def.Type),
		"steps", len(def.Steps),
	)

	switch def.Type {
	case domain.WorkflowSequential:
		e.runSequential(ctx, g, res)
	case domain.WorkflowParallel:
		e.runParallel(ctx, g, res)
	case domain.WorkflowConditional:
		e.runConditional(ctx, g, res)
	case domain.WorkflowHierarchical:
		e.runHierarchical(ctx, g, res)
	}

	res.Success = len(res.Errors) == 0
	res.Duration = time.Since(res.StartedAt)

	if res.Success {
		tracer.SetOK(span)
	} else {
		tracer.RecordError(span, fmt.Errorf("%d step error(s)", len(res.Errors)))
	}
	e.logger.Info("workflow finished",
		"run_id", res.RunID,
		"workflow", def.Name,
		"success", res.Success,
		"errors", len(res.Errors),
		"duration", res.Duration,
	)
	return res, nil
}

// runSequential executes steps in declared order and stops at the first
// failure; remaining steps stay pending and contribute nothing to the
// result.
func (e *Engine) runSequential(ctx context.Context, g *stepGraph, res *domain.WorkflowResult) {
	for _, step := range g.steps {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("step %q: workflow canceled: %v", step.Name, err))
			return
		}
		if dep, ok := unsatisfiedDep(step, res.Results); ok {
			res.Errors = append(res.Errors, fmt.Sprintf("step %q: dependency %q not satisfied", step.Name, dep))
			return
		}

		sr, err := e.executeOne(ctx, step, res.Results)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("step %q: %v", step.Name, err))
			return
		}
		res.Results[step.Name] = sr
		if !sr.Result.Success {
			res.Errors = append(res.Errors, fmt.Sprintf("step %q failed: %s", step.Name, sr.Result.Message))
			return
		}
	}
}

// runParallel launches every step concurrently and joins them all. There is
// no early cancellation on first failure: every step runs to completion.
// Dependencies do not gate parallel steps; each selects its agent and runs
// independently.
func (e *Engine) runParallel(ctx context.Context, g *stepGraph, res *domain.WorkflowResult) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, step := range g.steps {
		wg.Add(1)
		go func(step domain.WorkflowStep) {
			defer wg.Done()

			sr, err := e.executeOne(ctx, step, nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("step %q: %v", step.Name, err))
				return
			}
			res.Results[step.Name] = sr
			if !sr.Result.Success {
				res.Errors = append(res.Errors, fmt.Sprintf("step %q failed: %s", step.Name, sr.Result.Message))
			}
		}(step)
	}

	wg.Wait()
}

// runConditional executes steps in declared order, evaluating each step's
// parsed condition against the results accumulated so far. A condition whose
// referenced step has no result yet — or that evaluates false — skips the
// step entirely: skipped steps appear in neither Results nor Errors, and do
// not affect overall success. Execution continues past failed steps so that
// later conditions can react to failures.
func (e *Engine) runConditional(ctx context.Context, g *stepGraph, res *domain.WorkflowResult) {
	for i, step := range g.steps {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("step %q: workflow canceled: %v", step.Name, err))
			return
		}
		if cond := g.conditions[i]; cond != nil {
			match, known := cond.Eval(res.Results)
			if !known || !match {
				e.logger.Debug("step skipped", "step", step.Name, "condition", step.Condition, "known", known)
				continue
			}
		}

		sr, err := e.executeOne(ctx, step, res.Results)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("step %q: %v", step.Name, err))
			continue
		}
		res.Results[step.Name] = sr
		if !sr.Result.Success {
			res.Errors = append(res.Errors, fmt.Sprintf("step %q failed: %s", step.Name, sr.Result.Message))
		}
	}
}

// runHierarchical treats Dependencies as parent pointers: root steps (empty
// dependencies) execute in declared order, then each root's subtree runs
// recursively. An accumulating context map flows through the whole run so
// descendants see every completed ancestor's output. Each root's aggregate
// (its own result plus its subtree, nested under Children) lands under the
// root's name in Results. Any recorded error anywhere in the tree flips
// overall success to false.
func (e *Engine) runHierarchical(ctx context.Context, g *stepGraph, res *domain.WorkflowResult) {
	seen := make(map[int]bool, len(g.steps))
	ancestry := make(map[string]domain.StepResult, len(g.steps))

	for _, root := range g.roots {
		agg := e.runSubtree(ctx, g, root, ancestry, seen, res)
		res.Results[g.steps[root].Name] = agg
	}
}

func (e *Engine) runSubtree(ctx context.Context, g *stepGraph, idx int, ancestry map[string]domain.StepResult, seen map[int]bool, res *domain.WorkflowResult) domain.StepResult {
	seen[idx] = true
	step := g.steps[idx]

	var sr domain.StepResult
	if dep, ok := unsatisfiedDep(step, ancestry); ok {
		// Hard-fail policy: a step whose dependency failed is recorded as an
		// error without calling the agent.
		sr = domain.StepResult{
			StepName: step.Name,
			Result:   failed(fmt.Sprintf("dependency %q not satisfied", dep)),
		}
		res.Errors = append(res.Errors, fmt.Sprintf("step %q: dependency %q not satisfied", step.Name, dep))
	} else {
		var err error
		sr, err = e.executeOne(ctx, step, ancestry)
		if err != nil {
			sr = domain.StepResult{StepName: step.Name, Result: failed(err.Error())}
			res.Errors = append(res.Errors, fmt.Sprintf("step %q: %v", step.Name, err))
		} else if !sr.Result.Success {
			res.Errors = append(res.Errors, fmt.Sprintf("step %q failed: %s", step.Name, sr.Result.Message))
		}
	}
	ancestry[step.Name] = sr

	for _, child := range g.children[idx] {
		if seen[child] {
			continue
		}
		// A child with several parents runs under the last parent to
		// complete; until then its remaining dependencies have no results.
		if !allDepsSeen(g.steps[child], ancestry) {
			continue
		}
		csr := e.runSubtree(ctx, g, child, ancestry, seen, res)
		if sr.Children == nil {
			sr.Children = make(map[string]domain.StepResult)
		}
		sr.Children[g.steps[child].Name] = csr
	}

	return sr
}

// executeOne selects an agent for the step and runs it. A selection failure
// is fatal to the step only: the error is returned and the agent is never
// called.
func (e *Engine) executeOne(ctx context.Context, step domain.WorkflowStep, prior map[string]domain.StepResult) (domain.StepResult, error) {
	candidates := e.agents.AgentsOfType(step.AgentType)
	agent, err := e.picker.SelectBest(stepDescriptor(step), candidates)
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("no agent of type %q available: %w", step.AgentType, err)
	}
	return e.executor.ExecuteStep(ctx, agent, step, prior), nil
}

// stepDescriptor derives the task text used for agent selection: the step's
// "input" parameter when it is a string, otherwise the step name.
func stepDescriptor(step domain.WorkflowStep) string {
	if s, ok := step.Parameters["input"].(string); ok && s != "" {
		return s
	}
	return step.Name
}

// unsatisfiedDep returns the first dependency of step that either has no
// result in prior or did not succeed.
func unsatisfiedDep(step domain.WorkflowStep, prior map[string]domain.StepResult) (string, bool) {
	for _, dep := range step.Dependencies {
		r, ok := prior[dep]
		if !ok || !r.Result.Success {
			return dep, true
		}
	}
	return "", false
}

func allDepsSeen(step domain.WorkflowStep, prior map[string]domain.StepResult) bool {
	for _, dep := range step.Dependencies {
		if _, ok := prior[dep]; !ok {
			return false
		}
	}
	return true
}

// NewRunID returns a ULID for a workflow run.
func NewRunID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
