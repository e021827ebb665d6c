package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"maestro-ai/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 3
	defaultCBTimeout     time.Duration = 30 * time.Second
)

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
}

// BreakerAgent wraps a domain.Agent with circuit breaker protection. When the
// wrapped agent fails repeatedly, the circuit opens and subsequent steps fail
// fast without reaching the agent. Decide and Execute share one breaker: a
// flaky agent is a flaky agent regardless of which call surfaces it.
type BreakerAgent struct {
	inner   domain.Agent
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewBreakerAgent wraps inner with a circuit breaker. Zero-valued cfg fields
// use defaults.
func NewBreakerAgent(inner domain.Agent, cfg BreakerConfig, logger *slog.Logger) *BreakerAgent {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "agent:" + inner.ID(),
		MaxRequests: 1, // allow 1 probe in half-open state
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerAgent{inner: inner, breaker: cb, logger: logger}
}

func (a *BreakerAgent) ID() string                             { return a.inner.ID() }
func (a *BreakerAgent) Name() string                           { return a.inner.Name() }
func (a *BreakerAgent) Type() domain.AgentType                 { return a.inner.Type() }
func (a *BreakerAgent) Capabilities() domain.AgentCapabilities { return a.inner.Capabilities() }

// DecideAction routes the decision through the circuit breaker.
func (a *BreakerAgent) DecideAction(ctx context.Context, env domain.EnvironmentState) (domain.Action, error) {
	v, err := a.breaker.Execute(func() (any, error) {
		return a.inner.DecideAction(ctx, env)
	})
	if err != nil {
		return domain.Action{}, wrapBreakerErr(a.inner.ID(), err)
	}
	return v.(domain.Action), nil
}

// Execute routes the action through the circuit breaker. A returned
// ActionResult with Success=false does not trip the breaker; only errors do.
func (a *BreakerAgent) Execute(ctx context.Context, action domain.Action) (domain.ActionResult, error) {
	v, err := a.breaker.Execute(func() (any, error) {
		return a.inner.Execute(ctx, action)
	})
	if err != nil {
		return domain.ActionResult{}, wrapBreakerErr(a.inner.ID(), err)
	}
	return v.(domain.ActionResult), nil
}

// State returns the current circuit breaker state for monitoring.
func (a *BreakerAgent) State() gobreaker.State {
	return a.breaker.State()
}

func wrapBreakerErr(id string, err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("agent %q circuit open: %w", id, err)
	}
	return err
}

var _ domain.Agent = (*BreakerAgent)(nil)
