package selector

import (
	"strings"

	"maestro-ai/internal/domain"
)

// keywordProfile maps trigger keywords in task text to a TaskProfile.
type keywordProfile struct {
	keywords []string
	profile  domain.TaskProfile
}

// Keyword tables checked in order; the first match wins.
var defaultProfiles = []keywordProfile{
	{
		keywords: []string{"weather", "temperature", "forecast"},
		profile: domain.TaskProfile{
			ActionTypes: []domain.ActionType{domain.ActionAnalyze, domain.ActionQuery},
			Skill:       "weather_analysis",
		},
	},
	{
		keywords: []string{"plan", "trip", "schedule", "organize"},
		profile: domain.TaskProfile{
			ActionTypes: []domain.ActionType{domain.ActionPlan},
			Skill:       "planning",
		},
	},
	{
		keywords: []string{"monitor", "watch", "alert"},
		profile: domain.TaskProfile{
			ActionTypes: []domain.ActionType{domain.ActionQuery},
			Skill:       "monitoring",
		},
	},
	{
		keywords: []string{"deploy", "run", "execute", "launch"},
		profile: domain.TaskProfile{
			ActionTypes: []domain.ActionType{domain.ActionExecute},
			Skill:       "execution",
		},
	},
	{
		keywords: []string{"summarize", "report", "analyze", "review"},
		profile: domain.TaskProfile{
			ActionTypes: []domain.ActionType{domain.ActionAnalyze},
			Skill:       "analysis",
		},
	},
	{
		keywords: []string{"convert", "translate", "format"},
		profile: domain.TaskProfile{
			ActionTypes: []domain.ActionType{domain.ActionTransform},
			Skill:       "transformation",
		},
	},
}

// fallbackProfile applies when no keyword matches.
var fallbackProfile = domain.TaskProfile{
	ActionTypes: []domain.ActionType{domain.ActionQuery},
	Skill:       "general",
}

// KeywordClassifier derives a TaskProfile by keyword inspection of the task
// text. It implements domain.TaskClassifier.
type KeywordClassifier struct {
	profiles []keywordProfile
}

// NewKeywordClassifier creates a classifier with the default keyword tables.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{profiles: defaultProfiles}
}

// Classify returns the profile of the first keyword table matching the task.
func (c *KeywordClassifier) Classify(task string) domain.TaskProfile {
	lower := strings.ToLower(task)
	for _, kp := range c.profiles {
		for _, kw := range kp.keywords {
			if strings.Contains(lower, kw) {
				return kp.profile
			}
		}
	}
	return fallbackProfile
}
