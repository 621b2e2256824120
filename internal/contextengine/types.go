// Package contextengine assembles the enriched context the assistant
// reasons over: who is working on what, how the week is going, which
// patterns and deadlines matter right now. Building the context must
// never fail a turn; every data source degrades to a documented default.
package contextengine

import (
	"context"
	"time"

	"github.com/tempohq/tempo/internal/task"
)

// Preferences are the user's working-rhythm settings.
type Preferences struct {
	WorkStartHour int `json:"work_start_hour"`
	WorkEndHour   int `json:"work_end_hour"`
	FocusMinutes  int `json:"focus_minutes"`
}

// DefaultPreferences is a 9-to-5 schedule with 50-minute focus blocks.
func DefaultPreferences() Preferences {
	return Preferences{WorkStartHour: 9, WorkEndHour: 17, FocusMinutes: 50}
}

// BaseContext is the raw application state a turn starts from.
type BaseContext struct {
	CurrentTask   *task.Task    `json:"current_task,omitempty"`
	ActiveSession *task.Session `json:"active_session,omitempty"`
	Preferences   Preferences   `json:"preferences"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Deadline is an open task with an approaching due date.
type Deadline struct {
	TaskID   string    `json:"task_id"`
	Title    string    `json:"title"`
	DueDate  time.Time `json:"due_date"`
	DaysLeft int       `json:"days_left"`
}

// WorkflowState describes where the user is in their work cycle.
//
// Phase is one of "executing" (focus session running), "on_break",
// "planning" (open tasks, no session) or "idle". FocusLevel is "deep"
// once a focus session passes 25 minutes, "normal" during a shorter one,
// "none" otherwise. WorkloadIntensity buckets the open-task count:
// "none" (0), "light" (<=3), "moderate" (<=8), "heavy" (>8).
type WorkflowState struct {
	Phase             string     `json:"phase"`
	FocusLevel        string     `json:"focus_level"`
	WorkloadIntensity string     `json:"workload_intensity"`
	UpcomingDeadlines []Deadline `json:"upcoming_deadlines"`
	StreakDays        int        `json:"streak_days"`
}

// ProductivityMetrics summarizes the recent week of work.
//
// Trend compares completions this week against the week before:
// "improving", "steady" or "declining". EnergyEstimate is a time-of-day
// heuristic ("high", "medium", "low") lowered one step after three hours
// of focus time in the window.
type ProductivityMetrics struct {
	CompletionRate  float64 `json:"completion_rate"`
	AvgTaskMinutes  float64 `json:"avg_task_minutes"`
	FocusEfficiency float64 `json:"focus_efficiency"`
	EnergyEstimate  string  `json:"energy_estimate"`
	Trend           string  `json:"trend"`
}

// UserPattern is a recalled behavioral observation, e.g. "most deep work
// happens before noon".
type UserPattern struct {
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// ContextualInsight is an actionable observation derived from current
// data, surfaced to the model alongside the raw numbers.
type ContextualInsight struct {
	Type       string  `json:"type"`
	Message    string  `json:"message"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

// EnvironmentalFactors situate the conversation in time.
type EnvironmentalFactors struct {
	TimeOfDay      string `json:"time_of_day"`
	DayOfWeek      string `json:"day_of_week"`
	IsWorkingHours bool   `json:"is_working_hours"`
}

// EnhancedContext is the full enriched context for one turn.
type EnhancedContext struct {
	CurrentTask   *task.Task           `json:"current_task,omitempty"`
	ActiveSession *task.Session        `json:"active_session,omitempty"`
	Preferences   Preferences          `json:"preferences"`
	Timestamp     time.Time            `json:"timestamp"`
	Workflow      WorkflowState        `json:"workflow_state"`
	Productivity  ProductivityMetrics  `json:"productivity_metrics"`
	Patterns      []UserPattern        `json:"recent_patterns"`
	Insights      []ContextualInsight  `json:"contextual_insights"`
	Environment   EnvironmentalFactors `json:"environmental_factors"`
}

// BuildResult is what Build hands the reasoning loop.
type BuildResult struct {
	Context          EnhancedContext `json:"context"`
	Relevance        RelevanceScore  `json:"relevance"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	DataSourcesUsed  []string        `json:"data_sources_used"`
	CacheHit         bool            `json:"cache_hit"`
	Warnings         []string        `json:"warnings,omitempty"`
}

// PatternSource recalls stored behavioral patterns relevant to a query.
// A nil source simply yields no patterns.
type PatternSource interface {
	Recall(ctx context.Context, query string, limit int) ([]UserPattern, error)
}

// Facet defaults, used when a builder fails or no data source exists.

func defaultWorkflowState() WorkflowState {
	return WorkflowState{
		Phase:             "idle",
		FocusLevel:        "none",
		WorkloadIntensity: "none",
		UpcomingDeadlines: []Deadline{},
	}
}

func defaultProductivityMetrics() ProductivityMetrics {
	return ProductivityMetrics{
		EnergyEstimate: "medium",
		Trend:          "steady",
	}
}

// BuildBase assembles the base context from live store state. Store
// failures leave the affected field empty; the enrichment defaults make
// up for it downstream.
func BuildBase(ctx context.Context, store task.Store, prefs Preferences, now time.Time) BaseContext {
	base := BaseContext{Preferences: prefs, Timestamp: now}
	if store == nil {
		return base
	}

	if active, err := store.ActiveSession(ctx); err == nil && active != nil {
		base.ActiveSession = active
		if active.TaskID != "" {
			if t, err := store.GetTask(ctx, active.TaskID); err == nil && t != nil {
				base.CurrentTask = t
			}
		}
	}
	if base.CurrentTask == nil {
		if tasks, err := store.ListTasks(ctx, task.Filter{Status: task.StatusInProgress, Limit: 1}); err == nil && len(tasks) > 0 {
			base.CurrentTask = &tasks[0]
		}
	}
	return base
}
