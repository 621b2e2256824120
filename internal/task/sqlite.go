package task

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/db"
)

// SQLStore implements Store on top of the tempo SQLite database.
type SQLStore struct {
	db *db.DB
}

// NewSQLStore creates a task store backed by the given database.
func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database}
}

// CreateTask inserts a new task. If t.ID is empty a UUID is generated;
// empty status and priority fall back to todo/medium.
func (s *SQLStore) CreateTask(ctx context.Context, t Task) (*Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, fmt.Errorf("task title is required")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	var due sql.NullTime
	if t.DueDate != nil {
		due = sql.NullTime{Time: t.DueDate.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, due_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), due, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	return &t, nil
}

// GetTask retrieves a task by ID. Returns (nil, nil) if it does not exist.
func (s *SQLStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, status, priority, due_date, created_at, updated_at, completed_at
		 FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return t, nil
}

// UpdateTask applies the non-nil fields of upd to the task. A transition
// to done stamps completed_at; leaving done clears it. Returns (nil, nil)
// if the task does not exist.
func (s *SQLStore) UpdateTask(ctx context.Context, id string, upd Update) (*Task, error) {
	now := time.Now().UTC()

	sets := []string{"updated_at = ?"}
	args := []any{now}

	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
		if *upd.Status == StatusDone {
			sets = append(sets, "completed_at = ?")
			args = append(args, now)
		} else {
			sets = append(sets, "completed_at = NULL")
		}
	}
	if upd.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*upd.Priority))
	}
	if upd.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, upd.DueDate.UTC())
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetTask(ctx, id)
}

// ArchiveTask moves a task to the archived status. Archived tasks keep
// their history but are hidden from default listings. Returns (nil, nil)
// if the task does not exist.
func (s *SQLStore) ArchiveTask(ctx context.Context, id string) (*Task, error) {
	archived := StatusArchived
	return s.UpdateTask(ctx, id, Update{Status: &archived})
}

// DeleteTask permanently removes a task.
func (s *SQLStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *SQLStore) ListTasks(ctx context.Context, f Filter) ([]Task, error) {
	var (
		clauses []string
		args    []any
	)

	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	} else {
		// Archived tasks are hidden unless asked for explicitly.
		clauses = append(clauses, "status != ?")
		args = append(args, string(StatusArchived))
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.DueBefore != nil {
		clauses = append(clauses, "due_date IS NOT NULL AND due_date <= ?")
		args = append(args, f.DueBefore.UTC())
	}
	if f.Search != "" {
		clauses = append(clauses, "(title LIKE ? OR description LIKE ?)")
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}

	query := "SELECT id, title, description, status, priority, due_date, created_at, updated_at, completed_at FROM tasks"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// StartSession begins a new work or break session. At most one session may
// be active at a time.
func (s *SQLStore) StartSession(ctx context.Context, sess Session) (*Session, error) {
	active, err := s.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("a session is already active (started %s)", active.StartedAt.Format(time.RFC3339))
	}

	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.Kind == "" {
		sess.Kind = SessionFocus
	}
	sess.StartedAt = time.Now().UTC()
	sess.EndedAt = nil

	var taskID sql.NullString
	if sess.TaskID != "" {
		taskID = sql.NullString{String: sess.TaskID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO work_sessions (id, task_id, kind, started_at, note) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, taskID, string(sess.Kind), sess.StartedAt, sess.Note,
	)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	return &sess, nil
}

// StopSession ends the active session and returns it. Returns (nil, nil)
// if no session is active.
func (s *SQLStore) StopSession(ctx context.Context) (*Session, error) {
	active, err := s.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, nil
	}

	ended := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		"UPDATE work_sessions SET ended_at = ? WHERE id = ?", ended, active.ID)
	if err != nil {
		return nil, fmt.Errorf("stopping session: %w", err)
	}
	active.EndedAt = &ended
	return active, nil
}

// ActiveSession returns the currently running session, or (nil, nil).
func (s *SQLStore) ActiveSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, kind, started_at, ended_at, note
		 FROM work_sessions WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active session: %w", err)
	}
	return sess, nil
}

// ListSessions returns sessions started at or after since, oldest first.
func (s *SQLStore) ListSessions(ctx context.Context, since time.Time) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, kind, started_at, ended_at, note
		 FROM work_sessions WHERE started_at >= ? ORDER BY started_at ASC`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// Stats aggregates task and session numbers for the window starting at
// since. Durations and the completion streak are computed in Go to keep
// the SQL portable across datetime representations.
func (s *SQLStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, created_at, completed_at FROM tasks WHERE status != ?`,
		string(StatusArchived),
	)
	if err != nil {
		return nil, fmt.Errorf("querying task stats: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)
	since = since.UTC()

	st := &Stats{}
	completionDays := map[string]bool{}
	var totalTaskMinutes float64

	for rows.Next() {
		var (
			status    string
			createdAt time.Time
			completed sql.NullTime
		)
		if err := rows.Scan(&status, &createdAt, &completed); err != nil {
			return nil, fmt.Errorf("scanning task stats: %w", err)
		}

		st.TotalTasks++
		switch Status(status) {
		case StatusTodo, StatusInProgress:
			st.OpenTasks++
		case StatusDone:
			if !completed.Valid {
				continue
			}
			done := completed.Time.UTC()
			completionDays[done.Format("2006-01-02")] = true
			if done.Before(since) {
				continue
			}
			st.CompletedTasks++
			totalTaskMinutes += done.Sub(createdAt.UTC()).Minutes()
			if !done.Before(today) {
				st.CompletedToday++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if st.CompletedTasks > 0 {
		st.AvgTaskMinutes = totalTaskMinutes / float64(st.CompletedTasks)
	}
	if denom := st.CompletedTasks + st.OpenTasks; denom > 0 {
		st.CompletionRate = float64(st.CompletedTasks) / float64(denom)
	}

	sessions, err := s.ListSessions(ctx, since)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		minutes := sess.Duration(now).Minutes()
		if sess.Kind == SessionBreak {
			st.BreakMinutes += minutes
		} else {
			st.FocusMinutes += minutes
		}
	}

	// Streak: consecutive days ending today (or yesterday, if today has no
	// completion yet) with at least one completed task.
	day := today
	if !completionDays[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}
	for completionDays[day.Format("2006-01-02")] {
		st.StreakDays++
		day = day.AddDate(0, 0, -1)
	}

	return st, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*Task, error) {
	var (
		t                Task
		status, priority string
		due, completed   sql.NullTime
	)
	err := sc.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &due, &t.CreatedAt, &t.UpdatedAt, &completed)
	if err != nil {
		return nil, err
	}
	t.Status = Status(status)
	t.Priority = Priority(priority)
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	if completed.Valid {
		c := completed.Time.UTC()
		t.CompletedAt = &c
	}
	return &t, nil
}

func scanSession(sc scanner) (*Session, error) {
	var (
		sess   Session
		kind   string
		taskID sql.NullString
		ended  sql.NullTime
	)
	err := sc.Scan(&sess.ID, &taskID, &kind, &sess.StartedAt, &ended, &sess.Note)
	if err != nil {
		return nil, err
	}
	sess.Kind = SessionKind(kind)
	if taskID.Valid {
		sess.TaskID = taskID.String
	}
	if ended.Valid {
		e := ended.Time.UTC()
		sess.EndedAt = &e
	}
	return &sess, nil
}
