package task

import (
	"context"
	"time"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

// Priority orders tasks by importance.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is a single unit of work the user is tracking.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SessionKind distinguishes focused work from breaks.
type SessionKind string

const (
	SessionFocus SessionKind = "focus"
	SessionBreak SessionKind = "break"
)

// Session is one timed work or break interval, optionally tied to a task.
type Session struct {
	ID        string      `json:"id"`
	TaskID    string      `json:"task_id,omitempty"`
	Kind      SessionKind `json:"kind"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	Note      string      `json:"note,omitempty"`
}

// Duration returns the session length, using now for a still-running session.
func (s Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(s.StartedAt)
}

// Filter controls which tasks List returns. Zero values match everything.
type Filter struct {
	Status    Status
	Priority  Priority
	DueBefore *time.Time
	Search    string
	Limit     int
	Offset    int
}

// Update holds the fields of a task to change. Nil fields are left as-is.
type Update struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	DueDate     *time.Time
}

// Stats aggregates productivity numbers over a time window. These are the
// raw inputs the context facets derive their metrics from.
type Stats struct {
	TotalTasks     int     `json:"total_tasks"`
	OpenTasks      int     `json:"open_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	CompletedToday int     `json:"completed_today"`
	CompletionRate float64 `json:"completion_rate"`
	AvgTaskMinutes float64 `json:"avg_task_minutes"`
	FocusMinutes   float64 `json:"focus_minutes"`
	BreakMinutes   float64 `json:"break_minutes"`
	StreakDays     int     `json:"streak_days"`
}

// FocusEfficiency is the share of tracked time spent in focus sessions.
func (s Stats) FocusEfficiency() float64 {
	total := s.FocusMinutes + s.BreakMinutes
	if total == 0 {
		return 0
	}
	return s.FocusMinutes / total
}

// Store is the task/session persistence interface the rest of the system
// depends on. Tool handlers and context facets receive it by injection.
type Store interface {
	CreateTask(ctx context.Context, t Task) (*Task, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, id string, upd Update) (*Task, error)
	ArchiveTask(ctx context.Context, id string) (*Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, f Filter) ([]Task, error)

	StartSession(ctx context.Context, s Session) (*Session, error)
	StopSession(ctx context.Context) (*Session, error)
	ActiveSession(ctx context.Context) (*Session, error)
	ListSessions(ctx context.Context, since time.Time) ([]Session, error)

	Stats(ctx context.Context, since time.Time) (*Stats, error)
}
