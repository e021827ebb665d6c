package domain

import (
	"context"
	"time"
)

// WorkflowType selects the execution strategy for a workflow.
type WorkflowType string

const (
	WorkflowSequential   WorkflowType = "sequential"
	WorkflowParallel     WorkflowType = "parallel"
	WorkflowConditional  WorkflowType = "conditional"
	WorkflowHierarchical WorkflowType = "hierarchical"
)

// WorkflowDefinition describes a multi-step workflow. Definitions are loaded
// from YAML files or built inline by the caller.
type WorkflowDefinition struct {
	Name  string         `json:"name" yaml:"name"`
	Type  WorkflowType   `json:"type" yaml:"type"`
	Steps []WorkflowStep `json:"steps" yaml:"steps"`
	// Timeout bounds the whole workflow. Zero means no deadline.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// WorkflowStep is a single unit of work inside a workflow. Step names are
// unique within a workflow; they key the dependency graph and the results map.
type WorkflowStep struct {
	Name      string    `json:"name" yaml:"name"`
	AgentType AgentType `json:"agent_type" yaml:"agent_type"`
	// Parameters become the environment state the agent reasons over.
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// Dependencies name steps that must complete and succeed first.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Condition guards conditional steps: "<step>.Success == <bool>".
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	// Timeout bounds this step. Zero means the engine default applies.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// StepResult records the outcome of executing a single workflow step.
// For hierarchical workflows a root's StepResult aggregates its subtree
// under Children.
type StepResult struct {
	StepName  string        `json:"step_name"`
	AgentID   string        `json:"agent_id,omitempty"`
	AgentName string        `json:"agent_name,omitempty"`
	Action    Action        `json:"action"`
	Result    ActionResult  `json:"result"`
	Duration  time.Duration `json:"duration"`

	Children map[string]StepResult `json:"children,omitempty"`
}

// WorkflowResult is the structured answer of a workflow execution. It is
// created fresh per execution and populated incrementally as steps complete.
type WorkflowResult struct {
	RunID    string       `json:"run_id"`
	Workflow string       `json:"workflow"`
	Type     WorkflowType `json:"type"`
	// Success is true iff no step recorded an error.
	Success bool `json:"success"`
	// Results maps step names to their outcomes. Hierarchical workflows key
	// by root step name only; subtrees nest under Children.
	Results map[string]StepResult `json:"results"`
	// Errors holds one human-readable description per failed step, each
	// naming the step.
	Errors    []string      `json:"errors,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// RunStore persists finished workflow results for later inspection. The
// engine itself never consults it; history is a facade concern.
type RunStore interface {
	SaveRun(ctx context.Context, result WorkflowResult) error
	GetRun(ctx context.Context, runID string) (*WorkflowResult, error)
	ListRuns(ctx context.Context, limit int) ([]WorkflowResult, error)
	Close() error
}
