package domain

import (
	"errors"
	"fmt"
)

// Category sentinels — use with NewSubSystemError for subsystem-specific errors.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrDuplicate    = fmt.Errorf("duplicate")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrLimitReached = fmt.Errorf("limit reached")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrDisabled     = fmt.Errorf("disabled")
)

// Sentinel errors for the orchestration domain.
var (
	ErrNoCandidate           = fmt.Errorf("no candidate agent")
	ErrUnknownWorkflowType   = fmt.Errorf("unknown workflow type")
	ErrDependencyCycle       = fmt.Errorf("dependency cycle")
	ErrDependencyUnsatisfied = fmt.Errorf("dependency not satisfied")
	ErrDecisionFailed        = fmt.Errorf("agent decision failed")
	ErrExecutionFailed       = fmt.Errorf("action execution failed")
	ErrBusClosed             = fmt.Errorf("event bus closed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Engine.Execute")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "workflow", "selector")
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem so that
// ErrorCodeOf can map category sentinels to subsystem-specific codes.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown               ErrorCode = "UNKNOWN"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeDuplicate             ErrorCode = "DUPLICATE"
	CodeTimeout               ErrorCode = "TIMEOUT"
	CodeLimitReached          ErrorCode = "LIMIT_REACHED"
	CodeInvalidInput          ErrorCode = "INVALID_INPUT"
	CodeDisabled              ErrorCode = "DISABLED"
	CodeNoCandidate           ErrorCode = "NO_CANDIDATE_AGENT"
	CodeUnknownWorkflowType   ErrorCode = "UNKNOWN_WORKFLOW_TYPE"
	CodeDependencyCycle       ErrorCode = "DEPENDENCY_CYCLE"
	CodeDependencyUnsatisfied ErrorCode = "DEPENDENCY_UNSATISFIED"
	CodeDecisionFailed        ErrorCode = "AGENT_DECISION_FAILED"
	CodeExecutionFailed       ErrorCode = "ACTION_EXECUTION_FAILED"
	CodeBusClosed             ErrorCode = "EVENT_BUS_CLOSED"

	// Subsystem-specific codes resolved via subSystemCodeMap.
	CodeWorkflowNotFound   ErrorCode = "WORKFLOW_NOT_FOUND"
	CodeWorkflowInvalid    ErrorCode = "WORKFLOW_INVALID"
	CodeWorkflowMaxRunning ErrorCode = "WORKFLOW_MAX_RUNNING"
	CodeAgentNotFound      ErrorCode = "AGENT_NOT_FOUND"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:     CodeNotFound,
	ErrDuplicate:    CodeDuplicate,
	ErrTimeout:      CodeTimeout,
	ErrLimitReached: CodeLimitReached,
	ErrInvalidInput: CodeInvalidInput,
	ErrDisabled:     CodeDisabled,

	ErrNoCandidate:           CodeNoCandidate,
	ErrUnknownWorkflowType:   CodeUnknownWorkflowType,
	ErrDependencyCycle:       CodeDependencyCycle,
	ErrDependencyUnsatisfied: CodeDependencyUnsatisfied,
	ErrDecisionFailed:        CodeDecisionFailed,
	ErrExecutionFailed:       CodeExecutionFailed,
	ErrBusClosed:             CodeBusClosed,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific codes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrNotFound: {
		"workflow": CodeWorkflowNotFound,
		"agent":    CodeAgentNotFound,
	},
	ErrInvalidInput: {
		"workflow": CodeWorkflowInvalid,
	},
	ErrLimitReached: {
		"workflow": CodeWorkflowMaxRunning,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if de.SubSystem != "" {
			if subsysMap, ok := subSystemCodeMap[de.Err]; ok {
				if code, ok := subsysMap[de.SubSystem]; ok {
					return code
				}
			}
		}
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
