package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"maestro-ai/internal/domain"
	"maestro-ai/internal/infra/tracer"
)

// ExecutorConfig tunes step execution.
type ExecutorConfig struct {
	// StepTimeout bounds each step unless the step declares its own.
	// Zero preserves the default behavior: no deadline.
	StepTimeout time.Duration
	// DispatchPerSecond throttles agent dispatch across all workflows.
	// Zero disables throttling.
	DispatchPerSecond float64
	DispatchBurst     int
}

// StepExecutor runs a single workflow step against a chosen agent: it builds
// the environment snapshot, asks the agent to decide an action, executes the
// action, and publishes a completion event. Agent errors and panics are
// absorbed here and converted into failed results — they never cross this
// boundary as errors.
type StepExecutor struct {
	bus     domain.EventBus
	logger  *slog.Logger
	limiter *rate.Limiter
	timeout time.Duration
}

// NewStepExecutor creates a StepExecutor. bus may be nil (no events);
// logger may be nil (discard).
func NewStepExecutor(bus domain.EventBus, logger *slog.Logger, cfg ExecutorConfig) *StepExecutor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var limiter *rate.Limiter
	if cfg.DispatchPerSecond > 0 {
		burst := cfg.DispatchBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.DispatchPerSecond), burst)
	}
	return &StepExecutor{
		bus:     bus,
		logger:  logger,
		limiter: limiter,
		timeout: cfg.StepTimeout,
	}
}

// ExecuteStep runs step against agent. prior holds the results of already
// completed steps; dependency outputs present there are injected into the
// environment snapshot under "dep_<name>" keys.
func (e *StepExecutor) ExecuteStep(ctx context.Context, agent domain.Agent, step domain.WorkflowStep, prior map[string]domain.StepResult) domain.StepResult {
	start := time.Now()

	ctx, span := tracer.StartSpan(ctx, "workflow.step",
		tracer.WithAttrs(
			tracer.StringAttr("step.name", step.Name),
			tracer.StringAttr("agent.id", agent.ID()),
		))
	defer span.End()

	sr := domain.StepResult{
		StepName:  step.Name,
		AgentID:   agent.ID(),
		AgentName: agent.Name(),
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			sr.Result = failed(fmt.Sprintf("dispatch canceled: %v", err))
			sr.Duration = time.Since(start)
			tracer.RecordError(span, err)
			e.publishCompleted(ctx, step, sr)
			return sr
		}
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	env := buildEnvironment(step, prior)

	action, err := e.decide(ctx, agent, env)
	if err != nil {
		e.logger.Warn("agent decision failed", "step", step.Name, "agent_id", agent.ID(), "error", err)
		sr.Result = failed(err.Error())
		sr.Duration = time.Since(start)
		tracer.RecordError(span, err)
		e.publishCompleted(ctx, step, sr)
		return sr
	}
	sr.Action = action

	result, err := e.run(ctx, agent, action)
	if err != nil {
		e.logger.Warn("action execution failed", "step", step.Name, "agent_id", agent.ID(), "error", err)
		result = failed(err.Error())
		tracer.RecordError(span, err)
	} else {
		tracer.SetOK(span)
	}
	sr.Result = result
	sr.Duration = time.Since(start)

	e.publishCompleted(ctx, step, sr)
	return sr
}

// decide asks the agent for an action, converting panics into errors.
func (e *StepExecutor) decide(ctx context.Context, agent domain.Agent, env domain.EnvironmentState) (action domain.Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewDomainError("StepExecutor.decide", domain.ErrDecisionFailed,
				fmt.Sprintf("panic: %v", r))
		}
	}()
	action, err = agent.DecideAction(ctx, env)
	if err != nil {
		err = domain.NewDomainError("StepExecutor.decide", domain.ErrDecisionFailed, err.Error())
	}
	return action, err
}

// run executes the action, converting panics into errors.
func (e *StepExecutor) run(ctx context.Context, agent domain.Agent, action domain.Action) (result domain.ActionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewDomainError("StepExecutor.run", domain.ErrExecutionFailed,
				fmt.Sprintf("panic: %v", r))
		}
	}()
	result, err = agent.Execute(ctx, action)
	if err != nil {
		err = domain.NewDomainError("StepExecutor.run", domain.ErrExecutionFailed, err.Error())
	}
	return result, err
}

// publishCompleted emits a workflow.step.completed event. Publishing is
// fire-and-forget: failures are logged and never affect the step's result.
func (e *StepExecutor) publishCompleted(ctx context.Context, step domain.WorkflowStep, sr domain.StepResult) {
	if e.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"step":     step.Name,
		"agent_id": sr.AgentID,
		"action":   sr.Action.Type,
		"success":  sr.Result.Success,
		"message":  sr.Result.Message,
	})
	err := e.bus.Publish(ctx, domain.Event{
		Type:      domain.EventStepCompleted,
		Timestamp: time.Now(),
		Step:      step.Name,
		Payload:   payload,
	})
	if err != nil {
		e.logger.Warn("step event publish failed", "step", step.Name, "error", err)
	}
}

// buildEnvironment shallow-copies step parameters and injects each satisfied
// dependency's output under a namespaced dep_<name> key so the agent can
// condition on prior outputs.
func buildEnvironment(step domain.WorkflowStep, prior map[string]domain.StepResult) domain.EnvironmentState {
	env := make(domain.EnvironmentState, len(step.Parameters)+len(step.Dependencies))
	for k, v := range step.Parameters {
		env[k] = v
	}
	for _, dep := range step.Dependencies {
		if r, ok := prior[dep]; ok {
			env["dep_"+dep] = r.Result
		}
	}
	return env
}

func failed(msg string) domain.ActionResult {
	return domain.ActionResult{Success: false, Message: msg}
}
