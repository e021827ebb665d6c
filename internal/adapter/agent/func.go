// Package agent provides concrete domain.Agent implementations and
// decorators.
package agent

import (
	"context"
	"fmt"

	"maestro-ai/internal/domain"
)

// DecideFunc chooses an action for an environment.
type DecideFunc func(ctx context.Context, env domain.EnvironmentState) (domain.Action, error)

// ExecuteFunc carries out an action.
type ExecuteFunc func(ctx context.Context, action domain.Action) (domain.ActionResult, error)

// FuncAgent is a function-backed agent. It is the building block for demo
// agents and test doubles: behavior is supplied as closures, identity and
// capabilities as plain values.
type FuncAgent struct {
	id      string
	name    string
	typ     domain.AgentType
	caps    domain.AgentCapabilities
	decide  DecideFunc
	execute ExecuteFunc
}

// NewFuncAgent builds a FuncAgent. Nil decide/execute funcs fall back to a
// pass-through default.
func NewFuncAgent(id, name string, typ domain.AgentType, caps domain.AgentCapabilities, decide DecideFunc, execute ExecuteFunc) *FuncAgent {
	if decide == nil {
		decide = func(_ context.Context, env domain.EnvironmentState) (domain.Action, error) {
			return domain.Action{
				Type:       domain.ActionQuery,
				Name:       "default",
				Parameters: map[string]any(env),
			}, nil
		}
	}
	if execute == nil {
		execute = func(_ context.Context, action domain.Action) (domain.ActionResult, error) {
			return domain.ActionResult{
				Success: true,
				Message: fmt.Sprintf("action %q completed", action.Name),
			}, nil
		}
	}
	return &FuncAgent{id: id, name: name, typ: typ, caps: caps, decide: decide, execute: execute}
}

func (a *FuncAgent) ID() string                             { return a.id }
func (a *FuncAgent) Name() string                           { return a.name }
func (a *FuncAgent) Type() domain.AgentType                 { return a.typ }
func (a *FuncAgent) Capabilities() domain.AgentCapabilities { return a.caps }

func (a *FuncAgent) DecideAction(ctx context.Context, env domain.EnvironmentState) (domain.Action, error) {
	return a.decide(ctx, env)
}

func (a *FuncAgent) Execute(ctx context.Context, action domain.Action) (domain.ActionResult, error) {
	return a.execute(ctx, action)
}

var _ domain.Agent = (*FuncAgent)(nil)
