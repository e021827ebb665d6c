package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"maestro-ai/internal/domain"
)

// Scheduler triggers named workflows on cron schedules or fixed intervals.
type Scheduler struct {
	orch   *Orchestrator
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc

	// ctx is the run context handed to fired jobs; nil means stopped.
	// Jobs load it without taking mu: Stop waits for in-flight jobs to
	// drain, so nothing a job needs may sit behind a lock Stop holds.
	ctx atomic.Pointer[context.Context]
}

// NewScheduler creates a scheduler bound to orch.
func NewScheduler(orch *Orchestrator, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		orch:   orch,
		cron:   cron.New(),
		logger: logger,
	}
}

// Add schedules workflowName to run on the given schedule. The schedule may
// be a cron expression ("*/5 * * * *", "@hourly") or a duration ("30m").
func (s *Scheduler) Add(schedule, workflowName string) error {
	sched, err := parseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for workflow %q: %w", schedule, workflowName, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Schedule(sched, cron.FuncJob(func() {
		s.runJob(workflowName)
	}))

	s.logger.Info("workflow scheduled", "workflow", workflowName, "schedule", schedule)
	return nil
}

func (s *Scheduler) runJob(workflowName string) {
	ctx := s.ctx.Load()
	if ctx == nil {
		s.logger.Debug("scheduler stopped, skipping trigger", "workflow", workflowName)
		return
	}
	s.fire(*ctx, workflowName)
}

func (s *Scheduler) fire(ctx context.Context, workflowName string) {
	payload, _ := json.Marshal(map[string]any{"trigger": "cron"})
	s.orch.publish(ctx, domain.Event{
		Type:      domain.EventWorkflowScheduled,
		Timestamp: time.Now(),
		Workflow:  workflowName,
		Payload:   payload,
	})

	start := time.Now()
	res, err := s.orch.RunByName(ctx, workflowName)
	if err != nil {
		s.logger.Warn("scheduled workflow failed to start",
			"workflow", workflowName,
			"error", err,
			"duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled workflow finished",
		"workflow", workflowName,
		"run_id", res.RunID,
		"success", res.Success,
		"duration", time.Since(start))
}

// Start begins firing schedules. Idempotent.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.ctx.Store(&runCtx)
	s.cron.Start()
	s.started = true
}

// Stop halts triggering and waits for running jobs to finish. Idempotent.
// The drain wait happens outside the mutex so that a job launched just
// before the stop can still observe the cleared context and return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.ctx.Store(nil)
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

// parseSchedule tries a standard cron expression first, then falls back to a
// duration interval.
func parseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}

	dur, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("not a valid cron expression or duration: %q", schedule)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration must be positive: %q", schedule)
	}
	return cron.Every(dur), nil
}
