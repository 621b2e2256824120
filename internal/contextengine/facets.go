package contextengine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tempohq/tempo/internal/task"
)

const (
	deepFocusAfter   = 25 * time.Minute
	deadlineHorizon  = 7 * 24 * time.Hour
	maxDeadlines     = 5
	maxPatterns      = 3
	maxInsights      = 4
	metricsWindow    = 7 * 24 * time.Hour
	fatigueThreshold = 180.0 // focus minutes before energy drops a step
)

func (e *Engine) buildWorkflowState(ctx context.Context, base BaseContext, now time.Time) (WorkflowState, error) {
	open, err := e.store.ListTasks(ctx, task.Filter{Limit: 200})
	if err != nil {
		return WorkflowState{}, fmt.Errorf("listing open tasks: %w", err)
	}
	stats, err := e.store.Stats(ctx, now.Add(-metricsWindow))
	if err != nil {
		return WorkflowState{}, fmt.Errorf("reading stats: %w", err)
	}

	ws := WorkflowState{
		Phase:             "planning",
		FocusLevel:        "none",
		UpcomingDeadlines: []Deadline{},
		StreakDays:        stats.StreakDays,
	}

	openCount := 0
	for _, t := range open {
		if t.Status == task.StatusTodo || t.Status == task.StatusInProgress {
			openCount++
			if t.DueDate != nil && t.DueDate.Before(now.Add(deadlineHorizon)) {
				ws.UpcomingDeadlines = append(ws.UpcomingDeadlines, Deadline{
					TaskID:   t.ID,
					Title:    t.Title,
					DueDate:  *t.DueDate,
					DaysLeft: int(t.DueDate.Sub(now).Hours() / 24),
				})
			}
		}
	}
	sort.Slice(ws.UpcomingDeadlines, func(i, j int) bool {
		return ws.UpcomingDeadlines[i].DueDate.Before(ws.UpcomingDeadlines[j].DueDate)
	})
	if len(ws.UpcomingDeadlines) > maxDeadlines {
		ws.UpcomingDeadlines = ws.UpcomingDeadlines[:maxDeadlines]
	}

	switch {
	case openCount == 0:
		ws.WorkloadIntensity = "none"
	case openCount <= 3:
		ws.WorkloadIntensity = "light"
	case openCount <= 8:
		ws.WorkloadIntensity = "moderate"
	default:
		ws.WorkloadIntensity = "heavy"
	}

	if sess := base.ActiveSession; sess != nil {
		if sess.Kind == task.SessionBreak {
			ws.Phase = "on_break"
		} else {
			ws.Phase = "executing"
			if now.Sub(sess.StartedAt) >= deepFocusAfter {
				ws.FocusLevel = "deep"
			} else {
				ws.FocusLevel = "normal"
			}
		}
	} else if openCount == 0 {
		ws.Phase = "idle"
	}

	return ws, nil
}

func (e *Engine) buildProductivityMetrics(ctx context.Context, now time.Time) (ProductivityMetrics, error) {
	thisWeek, err := e.store.Stats(ctx, now.Add(-metricsWindow))
	if err != nil {
		return ProductivityMetrics{}, fmt.Errorf("reading weekly stats: %w", err)
	}
	twoWeeks, err := e.store.Stats(ctx, now.Add(-2*metricsWindow))
	if err != nil {
		return ProductivityMetrics{}, fmt.Errorf("reading biweekly stats: %w", err)
	}

	pm := ProductivityMetrics{
		CompletionRate:  thisWeek.CompletionRate,
		AvgTaskMinutes:  thisWeek.AvgTaskMinutes,
		FocusEfficiency: thisWeek.FocusEfficiency(),
	}

	previous := twoWeeks.CompletedTasks - thisWeek.CompletedTasks
	switch {
	case thisWeek.CompletedTasks > previous:
		pm.Trend = "improving"
	case thisWeek.CompletedTasks < previous:
		pm.Trend = "declining"
	default:
		pm.Trend = "steady"
	}

	pm.EnergyEstimate = energyEstimate(now, thisWeek.FocusMinutes)
	return pm, nil
}

// energyEstimate is a fixed time-of-day heuristic with a fatigue step.
func energyEstimate(now time.Time, focusMinutes float64) string {
	var level int // 2 high, 1 medium, 0 low
	switch hour := now.Hour(); {
	case hour >= 8 && hour < 12:
		level = 2
	case hour >= 12 && hour < 18:
		level = 1
	default:
		level = 0
	}
	if focusMinutes > fatigueThreshold && level > 0 {
		level--
	}
	return [...]string{"low", "medium", "high"}[level]
}

func (e *Engine) buildPatterns(ctx context.Context, message string, history []string) ([]UserPattern, error) {
	if e.patterns == nil {
		return []UserPattern{}, nil
	}
	query := message
	if len(history) > 0 {
		query = history[len(history)-1] + "\n" + message
	}
	found, err := e.patterns.Recall(ctx, query, maxPatterns)
	if err != nil {
		return nil, fmt.Errorf("recalling patterns: %w", err)
	}
	if found == nil {
		found = []UserPattern{}
	}
	return found, nil
}

func (e *Engine) buildInsights(ctx context.Context, base BaseContext, now time.Time) ([]ContextualInsight, error) {
	stats, err := e.store.Stats(ctx, now.Add(-metricsWindow))
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	overdue, err := e.store.ListTasks(ctx, task.Filter{DueBefore: &now})
	if err != nil {
		return nil, fmt.Errorf("listing overdue tasks: %w", err)
	}

	openOverdue := 0
	for _, t := range overdue {
		if t.Status == task.StatusTodo || t.Status == task.StatusInProgress {
			openOverdue++
		}
	}

	// Checks run in a fixed order so insight output is deterministic.
	insights := []ContextualInsight{}
	if openOverdue > 0 {
		insights = append(insights, ContextualInsight{
			Type:       "overdue_tasks",
			Message:    fmt.Sprintf("%d tasks are past their due date", openOverdue),
			Priority:   "high",
			Confidence: 0.95,
		})
	}
	if sess := base.ActiveSession; sess != nil && sess.Kind == task.SessionFocus {
		if elapsed := now.Sub(sess.StartedAt); elapsed > 90*time.Minute {
			insights = append(insights, ContextualInsight{
				Type:       "long_session",
				Message:    fmt.Sprintf("Current focus session has run %d minutes; a break may help", int(elapsed.Minutes())),
				Priority:   "medium",
				Confidence: 0.8,
			})
		}
	}
	if stats.StreakDays >= 3 {
		insights = append(insights, ContextualInsight{
			Type:       "streak",
			Message:    fmt.Sprintf("%d-day completion streak going", stats.StreakDays),
			Priority:   "low",
			Confidence: 0.9,
		})
	}
	if stats.OpenTasks > 0 && stats.CompletionRate < 0.3 {
		insights = append(insights, ContextualInsight{
			Type:       "low_completion",
			Message:    "Completion rate is low this week; consider narrowing the task list",
			Priority:   "medium",
			Confidence: 0.7,
		})
	}
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights, nil
}

// buildEnvironment is pure and cannot fail; it also serves as the
// whole-aggregation fallback.
func buildEnvironment(now time.Time, prefs Preferences) EnvironmentalFactors {
	var timeOfDay string
	switch hour := now.Hour(); {
	case hour >= 5 && hour < 12:
		timeOfDay = "morning"
	case hour >= 12 && hour < 17:
		timeOfDay = "afternoon"
	case hour >= 17 && hour < 22:
		timeOfDay = "evening"
	default:
		timeOfDay = "night"
	}

	weekday := now.Weekday()
	working := now.Hour() >= prefs.WorkStartHour && now.Hour() < prefs.WorkEndHour &&
		weekday != time.Saturday && weekday != time.Sunday

	return EnvironmentalFactors{
		TimeOfDay:      timeOfDay,
		DayOfWeek:      weekday.String(),
		IsWorkingHours: working,
	}
}
