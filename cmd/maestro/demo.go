package main

import (
	"context"
	"log/slog"

	"maestro-ai/internal/adapter/agent"
	"maestro-ai/internal/domain"
	"maestro-ai/internal/infra/config"
	"maestro-ai/internal/usecase/orchestrator"
)

// registerDemoAgents wires the built-in demo agents: a reactive weather
// checker and a deliberative day planner. When the circuit breaker is
// enabled, agents are registered behind it.
func registerDemoAgents(ctx context.Context, orch *orchestrator.Orchestrator, cfg *config.Config, log *slog.Logger) {
	weather := agent.NewFuncAgent(
		"weather-1", "Weather Watcher", domain.AgentReactive,
		domain.AgentCapabilities{
			ActionTypes: []domain.ActionType{domain.ActionQuery, domain.ActionAnalyze},
			Skills:      map[string]float64{"weather_analysis": 0.9, "general": 0.4},
			LoadFactor:  0.1,
			Performance: 0.85,
		},
		func(_ context.Context, env domain.EnvironmentState) (domain.Action, error) {
			return domain.Action{
				Type:       domain.ActionQuery,
				Name:       "fetch_forecast",
				Parameters: map[string]any{"location": "local"},
			}, nil
		},
		func(_ context.Context, action domain.Action) (domain.ActionResult, error) {
			return domain.ActionResult{
				Success: true,
				Message: "forecast retrieved",
				Data:    map[string]any{"condition": "sunny", "high_c": 24},
			}, nil
		},
	)

	planner := agent.NewFuncAgent(
		"planner-1", "Day Planner", domain.AgentDeliberative,
		domain.AgentCapabilities{
			ActionTypes: []domain.ActionType{domain.ActionPlan},
			Skills:      map[string]float64{"planning": 0.95, "general": 0.5},
			LoadFactor:  0.2,
			Performance: 0.9,
		},
		func(_ context.Context, env domain.EnvironmentState) (domain.Action, error) {
			params := map[string]any{}
			if dep, ok := env["dep_check-weather"]; ok {
				params["forecast"] = dep
			}
			return domain.Action{
				Type:       domain.ActionPlan,
				Name:       "build_schedule",
				Parameters: params,
			}, nil
		},
		func(_ context.Context, action domain.Action) (domain.ActionResult, error) {
			msg := "schedule built"
			if _, ok := action.Parameters["forecast"]; ok {
				msg = "schedule built around forecast"
			}
			return domain.ActionResult{Success: true, Message: msg}, nil
		},
	)

	for _, a := range []domain.Agent{weather, planner} {
		if cfg.Breaker.Enabled {
			a = agent.NewBreakerAgent(a, agent.BreakerConfig{
				MaxFailures: cfg.Breaker.ConsecutiveFailures,
				Timeout:     cfg.Breaker.GetOpenTimeout(),
			}, log)
		}
		orch.RegisterAgent(ctx, a)
	}
	log.Debug("demo agents registered", "count", 2)
}
