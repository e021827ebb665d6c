// Package selector scores candidate agents against a task description and
// picks the best one.
package selector

import (
	"io"
	"log/slog"

	"maestro-ai/internal/domain"
)

// Scoring weights. Changing these breaks compatibility with callers that
// rely on the documented selection behavior.
const (
	weightActionOverlap = 10.0
	weightSkill         = 5.0
	weightLoad          = 2.0
	weightPerformance   = 3.0
)

// Selector picks the highest-scoring agent for a task.
type Selector struct {
	classifier domain.TaskClassifier
	logger     *slog.Logger
}

// New creates a Selector. A nil classifier falls back to the keyword
// classifier; a nil logger discards output.
func New(classifier domain.TaskClassifier, logger *slog.Logger) *Selector {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Selector{classifier: classifier, logger: logger}
}

// SelectBest scores every candidate and returns the one with the strictly
// highest score. Ties resolve to the earliest candidate in input order, so
// selection is deterministic for a stable candidate ordering (the registry
// returns agents in registration order).
func (s *Selector) SelectBest(task string, candidates []domain.Agent) (domain.Agent, error) {
	if len(candidates) == 0 {
		return nil, domain.NewDomainError("Selector.SelectBest", domain.ErrNoCandidate, task)
	}

	profile := s.classifier.Classify(task)

	best := candidates[0]
	bestScore := Score(profile, best.Capabilities())
	for _, a := range candidates[1:] {
		score := Score(profile, a.Capabilities())
		s.logger.Debug("scored candidate", "agent_id", a.ID(), "score", score, "skill", profile.Skill)
		if score > bestScore {
			best, bestScore = a, score
		}
	}

	s.logger.Debug("selected agent",
		"agent_id", best.ID(),
		"score", bestScore,
		"candidates", len(candidates),
	)
	return best, nil
}

// Score computes the selection score of one candidate for a task profile:
//
//	10 * |requiredActionTypes ∩ supported|
//	+ 5 * skills[relevantSkill]
//	- 2 * loadFactor
//	+ 3 * performance
func Score(profile domain.TaskProfile, caps domain.AgentCapabilities) float64 {
	overlap := 0
	for _, t := range profile.ActionTypes {
		if caps.Supports(t) {
			overlap++
		}
	}
	return weightActionOverlap*float64(overlap) +
		weightSkill*caps.Skills[profile.Skill] -
		weightLoad*caps.LoadFactor +
		weightPerformance*caps.Performance
}
