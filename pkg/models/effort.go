package models

import "strings"

// EstimatedEffort is a coarse label for how much work a task needs.
type EstimatedEffort string

const (
	EffortQuick   EstimatedEffort = "quick"
	EffortShort   EstimatedEffort = "short"
	EffortSmall   EstimatedEffort = "small"
	EffortMedium  EstimatedEffort = "medium"
	EffortLarge   EstimatedEffort = "large"
	EffortXLarge  EstimatedEffort = "xlarge"
	EffortEpic    EstimatedEffort = "epic"
	EffortMassive EstimatedEffort = "massive"
)

// effortLevels groups effort labels into coarse level buckets.
var effortLevels = map[EstimatedEffort]string{
	EffortQuick:   "quick",
	EffortShort:   "quick",
	EffortSmall:   "short",
	EffortMedium:  "medium",
	EffortLarge:   "large",
	EffortXLarge:  "large",
	EffortEpic:    "epic",
	EffortMassive: "epic",
}

// Valid returns true if the effort label is a known value.
func (e EstimatedEffort) Valid() bool {
	_, ok := effortLevels[e]
	return ok
}

// Level returns the coarse bucket for this effort label, "medium" for
// unknown labels.
func (e EstimatedEffort) Level() string {
	if level, ok := effortLevels[e]; ok {
		return level
	}
	return "medium"
}

// labelKeywords maps common labels to the keywords that suggest them.
// The matching is a plain substring scan over title+description; it is a
// convenience heuristic, not a contract.
var labelKeywords = map[string][]string{
	"frontend":      {"frontend", "ui", "react", "component", "css", "html"},
	"backend":       {"backend", "api", "server", "endpoint", "database"},
	"bug":           {"bug", "fix", "broken", "error", "crash"},
	"feature":       {"feature", "implement", "add", "new"},
	"documentation": {"documentation", "docs", "readme", "guide"},
	"testing":       {"test", "coverage", "qa"},
	"security":      {"security", "auth", "vulnerability", "encrypt"},
	"performance":   {"performance", "slow", "optimize", "cache"},
	"devops":        {"deploy", "docker", "ci", "pipeline", "infrastructure"},
	"refactor":      {"refactor", "cleanup", "restructure"},
}

// maxSuggestedLabels caps how many label suggestions a task yields.
const maxSuggestedLabels = 5

// SuggestLabels scans content for label keywords and returns up to
// maxSuggestedLabels matching labels. Order is stable across calls.
func SuggestLabels(content string) []string {
	content = strings.ToLower(content)

	// Iterate labels in a fixed order so suggestions are deterministic.
	ordered := []string{
		"frontend", "backend", "bug", "feature", "documentation",
		"testing", "security", "performance", "devops", "refactor",
	}

	var suggestions []string
	for _, label := range ordered {
		for _, kw := range labelKeywords[label] {
			if strings.Contains(content, kw) {
				suggestions = append(suggestions, label)
				break
			}
		}
		if len(suggestions) == maxSuggestedLabels {
			break
		}
	}
	return suggestions
}
