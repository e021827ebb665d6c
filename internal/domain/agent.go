package domain

import "context"

// AgentType tags an agent with the execution style it implements.
// Workflow steps request an agent by type.
type AgentType string

const (
	AgentReactive     AgentType = "reactive"
	AgentDeliberative AgentType = "deliberative"
	AgentHybrid       AgentType = "hybrid"
	AgentUtility      AgentType = "utility"
)

// ActionType categorizes the actions an agent can decide on and execute.
type ActionType string

const (
	ActionQuery     ActionType = "query"
	ActionAnalyze   ActionType = "analyze"
	ActionPlan      ActionType = "plan"
	ActionExecute   ActionType = "execute"
	ActionTransform ActionType = "transform"
)

// AgentCapabilities declares what an agent can do and how loaded it is.
// Scalar fields are normalized to [0.0, 1.0].
type AgentCapabilities struct {
	// ActionTypes lists the action types the agent supports.
	ActionTypes []ActionType `json:"action_types" yaml:"action_types"`
	// Skills maps skill names to proficiency (0.0–1.0).
	Skills map[string]float64 `json:"skills,omitempty" yaml:"skills,omitempty"`
	// LoadFactor is the agent's current load; lower means more available.
	LoadFactor float64 `json:"load_factor" yaml:"load_factor"`
	// Performance is the agent's historical success score.
	Performance float64 `json:"performance" yaml:"performance"`
}

// Supports reports whether the agent declares support for the action type.
func (c AgentCapabilities) Supports(t ActionType) bool {
	for _, at := range c.ActionTypes {
		if at == t {
			return true
		}
	}
	return false
}

// EnvironmentState is the snapshot an agent reasons over when deciding an
// action. It is built from step parameters plus prior dependency outputs.
type EnvironmentState map[string]any

// Action is an agent's chosen response to an environment snapshot.
type Action struct {
	Type       ActionType     `json:"type"`
	Name       string         `json:"name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ActionResult is the outcome of executing a single action.
type ActionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Agent is the external capability the orchestrator calls into. Agents are
// created and owned by the caller; the orchestrator only holds a reference
// for the duration of registration. Implementations must be safe for
// concurrent use: the orchestrator does not serialize calls into a single
// agent across concurrently running steps.
type Agent interface {
	ID() string
	Name() string
	Type() AgentType
	Capabilities() AgentCapabilities

	// DecideAction chooses an action from the environment snapshot.
	DecideAction(ctx context.Context, env EnvironmentState) (Action, error)
	// Execute carries out a previously decided action.
	Execute(ctx context.Context, action Action) (ActionResult, error)
}

// TaskProfile is the classifier's reading of a task description: which
// action types the task requires and which skill is most relevant.
type TaskProfile struct {
	ActionTypes []ActionType
	Skill       string
}

// TaskClassifier derives a TaskProfile from free-form task text. The default
// implementation is keyword-based; callers may plug in a real classifier
// without touching the scoring algorithm.
type TaskClassifier interface {
	Classify(task string) TaskProfile
}
