package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"maestro-ai/internal/domain"
	"maestro-ai/internal/infra/config"
	"maestro-ai/internal/infra/logger"
	"maestro-ai/internal/infra/tracer"
	"maestro-ai/internal/usecase/eventbus"
	"maestro-ai/internal/usecase/orchestrator"
	"maestro-ai/internal/usecase/registry"
	"maestro-ai/internal/usecase/selector"
	"maestro-ai/internal/usecase/workflow"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	cmd := "demo"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "demo":
		err = runDemo()
	case "run":
		if len(os.Args) < 3 {
			err = fmt.Errorf("run requires a workflow name")
			break
		}
		err = runNamed(os.Args[2])
	case "list":
		err = runList()
	case "serve":
		err = runServe()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'maestro --help' for usage information.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`maestro - multi-agent workflow orchestrator

USAGE:
    maestro [COMMAND]

COMMANDS:
    demo        Register demo agents and run the built-in demo workflow
    run NAME    Execute a named workflow from the definition directory
    list        List loaded workflow definitions
    serve       Run resident with cron-triggered workflows

    (no command) - Same as demo

CONFIGURATION:
    Config file: ./config.yaml`)
}

// app bundles the wired components shared by every command.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	orch  *orchestrator.Orchestrator
	close func()
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		closeLog()
		return nil, err
	}

	bus := eventbus.New(log)
	reg := registry.New(log)
	sel := selector.New(nil, log)

	exec := workflow.NewStepExecutor(bus, log, workflow.ExecutorConfig{
		StepTimeout:       cfg.Engine.GetStepTimeout(),
		DispatchPerSecond: cfg.Engine.DispatchPerSecond,
		DispatchBurst:     cfg.Engine.DispatchBurst,
	})
	eng := workflow.NewEngine(reg, sel, exec, log)

	var store domain.RunStore
	if cfg.Store.Path != "" {
		store, err = workflow.NewSQLiteRunStore(cfg.Store.Path)
		if err != nil {
			log.Warn("run store unavailable, continuing without history", "error", err)
			store = nil
		}
	}

	orch := orchestrator.New(orchestrator.Config{
		MaxRunning:     cfg.Engine.MaxRunning,
		DefaultTimeout: cfg.Engine.GetDefaultTimeout(),
	}, reg, sel, eng, bus, store, log)

	if err := orch.LoadDefinitions(cfg.Engine.DefinitionDir); err != nil {
		log.Warn("definition loading failed", "error", err)
	}

	registerDemoAgents(ctx, orch, cfg, log)

	closeAll := func() {
		bus.Close()
		if store != nil {
			if err := store.Close(); err != nil {
				log.Warn("run store close failed", "error", err)
			}
		}
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
		closeLog()
	}
	return &app{cfg: cfg, log: log, orch: orch, close: closeAll}, nil
}

func runDemo() error {
	ctx := context.Background()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	def := domain.WorkflowDefinition{
		Name: "daily-briefing",
		Type: domain.WorkflowSequential,
		Steps: []domain.WorkflowStep{
			{
				Name:       "check-weather",
				AgentType:  domain.AgentReactive,
				Parameters: map[string]any{"input": "check today's weather forecast"},
			},
			{
				Name:         "plan-day",
				AgentType:    domain.AgentDeliberative,
				Parameters:   map[string]any{"input": "plan the day around the forecast"},
				Dependencies: []string{"check-weather"},
			},
		},
	}

	res, err := a.orch.ExecuteWorkflow(ctx, def)
	if err != nil {
		return err
	}
	return printResult(res)
}

func runNamed(name string) error {
	ctx := context.Background()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.orch.RunByName(ctx, name)
	if err != nil {
		return err
	}
	return printResult(res)
}

func runList() error {
	ctx := context.Background()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	for _, name := range a.orch.Definitions() {
		fmt.Println(name)
	}
	return nil
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sched := orchestrator.NewScheduler(a.orch, a.log)
	for _, s := range a.cfg.Schedules {
		if err := sched.Add(s.Cron, s.Workflow); err != nil {
			return err
		}
	}
	sched.Start(ctx)
	defer sched.Stop()

	<-ctx.Done()
	return nil
}

func printResult(res *domain.WorkflowResult) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
