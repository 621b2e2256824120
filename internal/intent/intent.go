// Package intent derives a lightweight intent descriptor from a raw user
// message. It is a deterministic keyword heuristic: no model calls, no
// state, the same message always yields the same Intent.
package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category is the broad topic of a user message.
type Category string

const (
	CategoryTaskManagement Category = "task_management"
	CategoryTimeTracking   Category = "time_tracking"
	CategoryPlanning       Category = "planning"
	CategoryAnalysis       Category = "analysis"
	CategoryGeneral        Category = "general"
)

// Urgency is how soon the user expects action.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Complexity estimates how involved the request is.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Intent is the classified shape of a message. It feeds relevance scoring
// and gating only; tool selection is left to the model.
type Intent struct {
	Category        Category   `json:"category"`
	Urgency         Urgency    `json:"urgency"`
	Complexity      Complexity `json:"complexity"`
	RequiresContext bool       `json:"requires_context"`
}

// categoryOrder fixes the evaluation order so classification is stable
// regardless of map iteration.
var categoryOrder = []Category{
	CategoryTaskManagement,
	CategoryTimeTracking,
	CategoryPlanning,
	CategoryAnalysis,
}

var categoryKeywords = map[Category][]string{
	CategoryTaskManagement: {
		"task", "todo", "to-do", "create", "add", "finish", "complete",
		"done", "delete", "remove", "archive", "priority", "due",
	},
	CategoryTimeTracking: {
		"timer", "track", "session", "pomodoro", "break", "clock",
		"start working", "stop working", "time spent",
	},
	CategoryPlanning: {
		"plan", "schedule", "tomorrow", "calendar", "organize",
		"prioritize", "next week", "this week", "roadmap",
	},
	CategoryAnalysis: {
		"stats", "statistics", "report", "productivity", "summary",
		"progress", "trend", "how much", "how many", "insight",
	},
}

var (
	highUrgencyKeywords = []string{"urgent", "asap", "immediately", "critical", "emergency", "right away"}
	lowUrgencyKeywords  = []string{"sometime", "someday", "eventually", "whenever", "later", "no rush", "low priority"}
)

const (
	simpleMaxRunes  = 40
	complexMinRunes = 120
	complexMinSteps = 2
)

// Extract classifies a message. Ties in any dimension fall back to the
// neutral defaults {general, medium, simple}.
func Extract(message string) Intent {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	it := Intent{
		Category:   classifyCategory(lower, fields),
		Urgency:    classifyUrgency(lower, fields),
		Complexity: classifyComplexity(lower, trimmed),
	}
	it.RequiresContext = it.Category != CategoryGeneral || it.Complexity != ComplexitySimple
	return it
}

func classifyCategory(lower string, fields []string) Category {
	best := CategoryGeneral
	bestHits := 0
	tied := false

	for _, cat := range categoryOrder {
		hits := 0
		for _, kw := range categoryKeywords[cat] {
			if matchKeyword(lower, fields, kw) {
				hits++
			}
		}
		switch {
		case hits > bestHits:
			best, bestHits, tied = cat, hits, false
		case hits == bestHits && hits > 0:
			tied = true
		}
	}
	if bestHits == 0 || tied {
		return CategoryGeneral
	}
	return best
}

func classifyUrgency(lower string, fields []string) Urgency {
	high := anyKeyword(lower, fields, highUrgencyKeywords)
	low := anyKeyword(lower, fields, lowUrgencyKeywords)
	switch {
	case high && !low:
		return UrgencyHigh
	case low && !high:
		return UrgencyLow
	default:
		return UrgencyMedium
	}
}

func classifyComplexity(lower, trimmed string) Complexity {
	steps := strings.Count(lower, " and ") + strings.Count(lower, " then ") + strings.Count(lower, ";")
	runes := utf8.RuneCountInString(trimmed)
	switch {
	case runes > complexMinRunes || steps >= complexMinSteps:
		return ComplexityComplex
	case runes < simpleMaxRunes && steps == 0:
		return ComplexitySimple
	default:
		return ComplexityModerate
	}
}

func anyKeyword(lower string, fields []string, keywords []string) bool {
	for _, kw := range keywords {
		if matchKeyword(lower, fields, kw) {
			return true
		}
	}
	return false
}

// matchKeyword matches phrases as substrings and single words as field
// prefixes, so "track" catches "tracking" but "now" does not catch "know".
func matchKeyword(lower string, fields []string, kw string) bool {
	if strings.ContainsRune(kw, ' ') {
		return strings.Contains(lower, kw)
	}
	for _, f := range fields {
		if strings.HasPrefix(f, kw) {
			return true
		}
	}
	return false
}
