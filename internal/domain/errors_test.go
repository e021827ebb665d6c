package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Engine.Execute", ErrDependencyCycle, "step-a")
	if !errors.Is(err, ErrDependencyCycle) {
		t.Error("Unwrap does not reach the sentinel")
	}
	if got := err.Error(); got != "Engine.Execute: step-a: dependency cycle" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrapOp(t *testing.T) {
	if WrapOp("op", nil) != nil {
		t.Error("WrapOp(nil) != nil")
	}
	wrapped := WrapOp("save run", ErrTimeout)
	if !errors.Is(wrapped, ErrTimeout) {
		t.Error("wrapped error loses sentinel")
	}
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, CodeUnknown},
		{ErrNoCandidate, CodeNoCandidate},
		{ErrUnknownWorkflowType, CodeUnknownWorkflowType},
		{NewDomainError("op", ErrDependencyCycle, "x"), CodeDependencyCycle},
		{NewSubSystemError("workflow", "op", ErrNotFound, "x"), CodeWorkflowNotFound},
		{NewSubSystemError("agent", "op", ErrNotFound, "x"), CodeAgentNotFound},
		{NewSubSystemError("workflow", "op", ErrInvalidInput, "x"), CodeWorkflowInvalid},
		{NewSubSystemError("workflow", "op", ErrLimitReached, "x"), CodeWorkflowMaxRunning},
		// Subsystem without a specific mapping falls back to the category code.
		{NewSubSystemError("selector", "op", ErrTimeout, "x"), CodeTimeout},
		{fmt.Errorf("outer: %w", ErrBusClosed), CodeBusClosed},
		{errors.New("unrelated"), CodeUnknown},
	}

	for _, tt := range tests {
		if got := ErrorCodeOf(tt.err); got != tt.want {
			t.Errorf("ErrorCodeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
