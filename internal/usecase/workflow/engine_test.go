package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"maestro-ai/internal/domain"
)

// testAgent is a configurable in-memory agent. Execute outcomes are keyed by
// the step's "input" parameter carried through the decided action.
type testAgent struct {
	id  string
	typ domain.AgentType

	mu    sync.Mutex
	calls []string // step descriptors in execution order

	failFor map[string]bool  // descriptor → return Success=false
	errFor  map[string]error // descriptor → DecideAction error
}

func newTestAgent(id string, typ domain.AgentType) *testAgent {
	return &testAgent{
		id:      id,
		typ:     typ,
		failFor: make(map[string]bool),
		errFor:  make(map[string]error),
	}
}

func (a *testAgent) ID() string             { return a.id }
func (a *testAgent) Name() string           { return a.id }
func (a *testAgent) Type() domain.AgentType { return a.typ }

func (a *testAgent) Capabilities() domain.AgentCapabilities {
	return domain.AgentCapabilities{
		ActionTypes: []domain.ActionType{domain.ActionQuery},
		Performance: 0.5,
	}
}

func (a *testAgent) DecideAction(_ context.Context, env domain.EnvironmentState) (domain.Action, error) {
	desc, _ := env["input"].(string)
	if err := a.errFor[desc]; err != nil {
		return domain.Action{}, err
	}
	return domain.Action{
		Type:       domain.ActionQuery,
		Name:       desc,
		Parameters: map[string]any(env),
	}, nil
}

func (a *testAgent) Execute(_ context.Context, action domain.Action) (domain.ActionResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, action.Name)
	a.mu.Unlock()

	if a.failFor[action.Name] {
		return domain.ActionResult{Success: false, Message: "simulated failure"}, nil
	}
	return domain.ActionResult{Success: true, Message: "ok"}, nil
}

func (a *testAgent) callOrder() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// stubSource serves agents by type without a full registry.
type stubSource map[domain.AgentType][]domain.Agent

func (s stubSource) AgentsOfType(t domain.AgentType) []domain.Agent { return s[t] }

// firstPicker always picks the first candidate.
type firstPicker struct{}

func (firstPicker) SelectBest(task string, candidates []domain.Agent) (domain.Agent, error) {
	if len(candidates) == 0 {
		return nil, domain.NewDomainError("SelectBest", domain.ErrNoCandidate, task)
	}
	return candidates[0], nil
}

func newTestEngine(agents ...*testAgent) (*Engine, stubSource) {
	src := stubSource{}
	for _, a := range agents {
		src[a.typ] = append(src[a.typ], a)
	}
	exec := NewStepExecutor(nil, nil, ExecutorConfig{})
	return NewEngine(src, firstPicker{}, exec, nil), src
}

func step(name string, deps ...string) domain.WorkflowStep {
	return domain.WorkflowStep{
		Name:         name,
		AgentType:    domain.AgentReactive,
		Parameters:   map[string]any{"input": name},
		Dependencies: deps,
	}
}

func TestSequentialRunsInOrder(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	eng, _ := newTestEngine(agent)

	def := domain.WorkflowDefinition{
		Name:  "seq",
		Type:  domain.WorkflowSequential,
		Steps: []domain.WorkflowStep{step("s1"), step("s2", "s1"), step("s3", "s2")},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.Errors)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(res.Results) != 3 {
		t.Errorf("got %d results, want 3", len(res.Results))
	}

	order := agent.callOrder()
	want := []string{"s1", "s2", "s3"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("call order = %v, want %v", order, want)
		}
	}
}

func TestSequentialStopsOnFailure(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	agent.failFor["s2"] = true
	eng, _ := newTestEngine(agent)

	def := domain.WorkflowDefinition{
		Name:  "seq",
		Type:  domain.WorkflowSequential,
		Steps: []domain.WorkflowStep{step("s1"), step("s2"), step("s3")},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("Success = true, want false")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "s2") {
		t.Errorf("Errors = %v, want one error naming s2", res.Errors)
	}
	if _, ran := res.Results["s3"]; ran {
		t.Error("s3 ran after s2 failed")
	}
	order := agent.callOrder()
	if len(order) != 2 {
		t.Errorf("agent called %d times, want 2: %v", len(order), order)
	}
}

func TestSequentialUnsatisfiedDependency(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	eng, _ := newTestEngine(agent)

	// s1 depends on s2, declared later: unsatisfied at s1's turn.
	def := domain.WorkflowDefinition{
		Name:  "seq",
		Type:  domain.WorkflowSequential,
		Steps: []domain.WorkflowStep{step("s1", "s2"), step("s2")},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("Success = true, want false")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "dependency") {
		t.Errorf("Errors = %v, want a dependency error", res.Errors)
	}
	if len(agent.callOrder()) != 0 {
		t.Error("agent was called despite unsatisfied dependency")
	}
}

func TestParallelRunsEverything(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	agent.failFor["p2"] = true
	eng, _ := newTestEngine(agent)

	def := domain.WorkflowDefinition{
		Name:  "par",
		Type:  domain.WorkflowParallel,
		Steps: []domain.WorkflowStep{step("p1"), step("p2"), step("p3")},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("Success = true, want false")
	}
	// Failure of p2 does not stop p1 or p3.
	if len(res.Results) != 3 {
		t.Errorf("got %d results, want 3", len(res.Results))
	}
	if len(agent.callOrder()) != 3 {
		t.Errorf("agent called %d times, want 3", len(agent.callOrder()))
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "p2") {
		t.Errorf("Errors = %v, want one error naming p2", res.Errors)
	}
}

func TestConditionalSkipsAndRuns(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	eng, _ := newTestEngine(agent)

	cond := func(name, expr string) domain.WorkflowStep {
		s := step(name)
		s.Condition = expr
		return s
	}

	def := domain.WorkflowDefinition{
		Name: "cond",
		Type: domain.WorkflowConditional,
		Steps: []domain.WorkflowStep{
			step("c1"),
			cond("on-failure", "c1.Success == false"),    // skipped: c1 succeeded
			cond("on-success", "c1.Success == true"),     // runs
			cond("unknown-ref", "ghost.Success == true"), // skipped: no result for ghost
		},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.Errors)
	}
	if len(res.Results) != 2 {
		t.Errorf("got %d results, want 2 (c1, on-success): %v", len(res.Results), res.Results)
	}
	if _, ok := res.Results["on-success"]; !ok {
		t.Error("on-success did not run")
	}
	if _, ok := res.Results["on-failure"]; ok {
		t.Error("on-failure ran despite false condition")
	}
	if _, ok := res.Results["unknown-ref"]; ok {
		t.Error("unknown-ref ran despite unknown condition reference")
	}
}

func TestConditionalContinuesPastFailure(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	agent.failFor["c1"] = true
	eng, _ := newTestEngine(agent)

	recovery := step("recovery")
	recovery.Condition = "c1.Success == false"

	def := domain.WorkflowDefinition{
		Name:  "cond",
		Type:  domain.WorkflowConditional,
		Steps: []domain.WorkflowStep{step("c1"), recovery},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// The recovery step reacted to the failure.
	if _, ok := res.Results["recovery"]; !ok {
		t.Error("recovery step did not run after c1 failed")
	}
	// The c1 failure still counts against overall success.
	if res.Success {
		t.Error("Success = true, want false")
	}
}

func TestHierarchicalAggregatesSubtrees(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	eng, _ := newTestEngine(agent)

	def := domain.WorkflowDefinition{
		Name: "hier",
		Type: domain.WorkflowHierarchical,
		Steps: []domain.WorkflowStep{
			step("root"),
			step("child1", "root"),
			step("child2", "root"),
			step("grandchild", "child1"),
		},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.Errors)
	}
	// Only the root keys the top-level results; the subtree nests under it.
	if len(res.Results) != 1 {
		t.Fatalf("got %d top-level results, want 1: %v", len(res.Results), res.Results)
	}
	root := res.Results["root"]
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}
	child1 := root.Children["child1"]
	if _, ok := child1.Children["grandchild"]; !ok {
		t.Error("grandchild not nested under child1")
	}
	if len(agent.callOrder()) != 4 {
		t.Errorf("agent called %d times, want 4", len(agent.callOrder()))
	}
}

func TestHierarchicalChildFailureFlipsSuccess(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	agent.failFor["child"] = true
	eng, _ := newTestEngine(agent)

	def := domain.WorkflowDefinition{
		Name: "hier",
		Type: domain.WorkflowHierarchical,
		Steps: []domain.WorkflowStep{
			step("root"),
			step("child", "root"),
		},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("Success = true, want false after child failure")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "child") {
		t.Errorf("Errors = %v, want one error naming child", res.Errors)
	}
}

func TestHierarchicalFailedParentBlocksChild(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	agent.failFor["root"] = true
	eng, _ := newTestEngine(agent)

	def := domain.WorkflowDefinition{
		Name: "hier",
		Type: domain.WorkflowHierarchical,
		Steps: []domain.WorkflowStep{
			step("root"),
			step("child", "root"),
		},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("Success = true, want false")
	}
	// The child's agent is never called; its error is recorded directly.
	if got := agent.callOrder(); len(got) != 1 || got[0] != "root" {
		t.Errorf("calls = %v, want [root]", got)
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "child") && strings.Contains(e, "dependency") {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want a dependency error for child", res.Errors)
	}
}

func TestHierarchicalDiamond(t *testing.T) {
	agent := newTestAgent("a1", domain.AgentReactive)
	eng, _ := newTestEngine(agent)

	def := domain.WorkflowDefinition{
		Name: "diamond",
		Type: domain.WorkflowHierarchical,
		Steps: []domain.WorkflowStep{
			step("root"),
			step("left", "root"),
			step("right", "root"),
			step("join", "left", "right"),
		},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.Errors)
	}
	// Every step runs exactly once even with two paths to join.
	if len(agent.callOrder()) != 4 {
		t.Errorf("agent called %d times, want 4: %v", len(agent.callOrder()), agent.callOrder())
	}
}

func TestExecuteUnknownWorkflowType(t *testing.T) {
	eng, _ := newTestEngine(newTestAgent("a1", domain.AgentReactive))

	def := domain.WorkflowDefinition{
		Name:  "bad",
		Type:  "pipelined",
		Steps: []domain.WorkflowStep{step("s1")},
	}

	_, err := eng.Execute(context.Background(), def)
	if !errors.Is(err, domain.ErrUnknownWorkflowType) {
		t.Fatalf("got %v, want ErrUnknownWorkflowType", err)
	}
}

func TestExecuteUnknownDependency(t *testing.T) {
	eng, _ := newTestEngine(newTestAgent("a1", domain.AgentReactive))

	def := domain.WorkflowDefinition{
		Name:  "bad",
		Type:  domain.WorkflowSequential,
		Steps: []domain.WorkflowStep{step("s1", "ghost")},
	}

	_, err := eng.Execute(context.Background(), def)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestExecuteDependencyCycle(t *testing.T) {
	eng, _ := newTestEngine(newTestAgent("a1", domain.AgentReactive))

	def := domain.WorkflowDefinition{
		Name: "cyclic",
		Type: domain.WorkflowSequential,
		Steps: []domain.WorkflowStep{
			step("a", "c"),
			step("b", "a"),
			step("c", "b"),
		},
	}

	_, err := eng.Execute(context.Background(), def)
	if !errors.Is(err, domain.ErrDependencyCycle) {
		t.Fatalf("got %v, want ErrDependencyCycle", err)
	}
}

func TestExecuteEmptyAndDuplicateSteps(t *testing.T) {
	eng, _ := newTestEngine(newTestAgent("a1", domain.AgentReactive))

	_, err := eng.Execute(context.Background(), domain.WorkflowDefinition{
		Name: "empty", Type: domain.WorkflowSequential,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty steps: got %v, want ErrInvalidInput", err)
	}

	_, err = eng.Execute(context.Background(), domain.WorkflowDefinition{
		Name:  "dup",
		Type:  domain.WorkflowSequential,
		Steps: []domain.WorkflowStep{step("same"), step("same")},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("duplicate names: got %v, want ErrInvalidInput", err)
	}
}

func TestNoAgentForStepType(t *testing.T) {
	// Only a reactive agent is registered; the step wants deliberative.
	eng, _ := newTestEngine(newTestAgent("a1", domain.AgentReactive))

	s := step("s1")
	s.AgentType = domain.AgentDeliberative
	def := domain.WorkflowDefinition{
		Name:  "mismatch",
		Type:  domain.WorkflowSequential,
		Steps: []domain.WorkflowStep{s},
	}

	res, err := eng.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("Success = true, want false")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "no agent") {
		t.Errorf("Errors = %v, want a no-agent error", res.Errors)
	}
}

func TestValidate(t *testing.T) {
	good := domain.WorkflowDefinition{
		Name:  "ok",
		Type:  domain.WorkflowSequential,
		Steps: []domain.WorkflowStep{step("s1")},
	}
	if err := Validate(good); err != nil {
		t.Errorf("Validate(good): %v", err)
	}

	bad := domain.WorkflowDefinition{Name: "bad", Type: "nope", Steps: []domain.WorkflowStep{step("s1")}}
	if err := Validate(bad); !errors.Is(err, domain.ErrUnknownWorkflowType) {
		t.Errorf("Validate(bad) = %v, want ErrUnknownWorkflowType", err)
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == "" || b == "" {
		t.Fatal("empty run ID")
	}
	if a == b {
		t.Errorf("consecutive run IDs collide: %s", a)
	}
	if len(a) != 26 {
		t.Errorf("run ID %q has length %d, want 26", a, len(a))
	}
}
