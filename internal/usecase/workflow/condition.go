package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"maestro-ai/internal/domain"
)

// Condition is a parsed step guard of the form "<step>.Success == <bool>".
// Conditions are parsed once at workflow-load time and evaluated as a pure
// function over the results accumulated so far.
type Condition struct {
	Step string
	Want bool
}

// ParseCondition parses a condition expression. The supported grammar is a
// single equality check of a prior step's Success flag against a boolean
// literal, e.g. "fetch.Success == true".
func ParseCondition(expr string) (*Condition, error) {
	const op = "ParseCondition"

	parts := strings.Split(expr, "==")
	if len(parts) != 2 {
		return nil, domain.NewSubSystemError("workflow", op, domain.ErrInvalidInput,
			fmt.Sprintf("condition %q: want <step>.Success == <bool>", expr))
	}

	lhs := strings.TrimSpace(parts[0])
	step, ok := strings.CutSuffix(lhs, ".Success")
	if !ok || step == "" {
		return nil, domain.NewSubSystemError("workflow", op, domain.ErrInvalidInput,
			fmt.Sprintf("condition %q: left side must be <step>.Success", expr))
	}

	want, err := strconv.ParseBool(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, domain.NewSubSystemError("workflow", op, domain.ErrInvalidInput,
			fmt.Sprintf("condition %q: right side must be true or false", expr))
	}

	return &Condition{Step: step, Want: want}, nil
}

// Eval checks the condition against the given results. known is false when
// the referenced step has no result yet; the caller skips the step in that
// case rather than failing it.
func (c *Condition) Eval(results map[string]domain.StepResult) (match, known bool) {
	r, ok := results[c.Step]
	if !ok {
		return false, false
	}
	return r.Result.Success == c.Want, true
}
