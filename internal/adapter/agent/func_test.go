package agent

import (
	"context"
	"testing"

	"maestro-ai/internal/domain"
)

func TestFuncAgentDefaults(t *testing.T) {
	a := NewFuncAgent("a1", "Default", domain.AgentReactive, domain.AgentCapabilities{}, nil, nil)
	ctx := context.Background()

	action, err := a.DecideAction(ctx, domain.EnvironmentState{"k": "v"})
	if err != nil {
		t.Fatalf("DecideAction: %v", err)
	}
	if action.Type != domain.ActionQuery {
		t.Errorf("default action type = %s, want query", action.Type)
	}
	if action.Parameters["k"] != "v" {
		t.Errorf("environment not carried into parameters: %v", action.Parameters)
	}

	res, err := a.Execute(ctx, action)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Errorf("default execute failed: %s", res.Message)
	}
}

func TestFuncAgentCustomBehavior(t *testing.T) {
	a := NewFuncAgent("a2", "Custom", domain.AgentUtility,
		domain.AgentCapabilities{ActionTypes: []domain.ActionType{domain.ActionTransform}},
		func(_ context.Context, _ domain.EnvironmentState) (domain.Action, error) {
			return domain.Action{Type: domain.ActionTransform, Name: "convert"}, nil
		},
		func(_ context.Context, action domain.Action) (domain.ActionResult, error) {
			return domain.ActionResult{Success: true, Message: "did " + action.Name}, nil
		},
	)
	ctx := context.Background()

	action, err := a.DecideAction(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Execute(ctx, action)
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "did convert" {
		t.Errorf("Message = %q", res.Message)
	}
	if !a.Capabilities().Supports(domain.ActionTransform) {
		t.Error("capabilities lost")
	}
}
