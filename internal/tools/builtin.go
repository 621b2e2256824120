package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/tempohq/tempo/internal/impact"
	"github.com/tempohq/tempo/internal/task"
)

const dueDateLayout = "2006-01-02"

// RegisterBuiltin registers the standard task and session tools against
// the given store.
func RegisterBuiltin(r *Registry, store task.Store) error {
	defs := []Definition{
		createTaskTool(store),
		getTaskTool(store),
		listTasksTool(store),
		updateTaskTool(store),
		completeTaskTool(store),
		archiveTaskTool(store),
		deleteTaskTool(store),
		startSessionTool(store),
		stopSessionTool(store),
		getStatsTool(store),
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func createTaskTool(store task.Store) Definition {
	return Definition{
		Name:        "create_task",
		Description: "Create a new task with a title and optional description, priority and due date.",
		Params: []Param{
			{Name: "title", Type: "string", Description: "Short task title", Required: true},
			{Name: "description", Type: "string", Description: "Longer details"},
			{Name: "priority", Type: "string", Description: "Task priority", Enum: []string{"low", "medium", "high"}},
			{Name: "due_date", Type: "string", Description: "Due date in YYYY-MM-DD format"},
		},
		Permission: PermissionWrite,
		Mutating:   true,
		Plan: func(ctx context.Context, args Args) ([]impact.Change, error) {
			title := args.GetString("title", "")
			return []impact.Change{{
				Type:        impact.ChangeCreate,
				Target:      "Task: " + title,
				NewValue:    title,
				Description: fmt.Sprintf("Create task %q", title),
			}}, nil
		},
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			title, err := args.RequireString("title")
			if err != nil {
				return nil, err
			}
			t := task.Task{
				Title:       title,
				Description: args.GetString("description", ""),
				Priority:    task.Priority(args.GetString("priority", "")),
			}
			if ds := args.GetString("due_date", ""); ds != "" {
				due, err := time.Parse(dueDateLayout, ds)
				if err != nil {
					return nil, Errorf("invalid due_date %q, expected YYYY-MM-DD", ds)
				}
				t.DueDate = &due
			}
			created, err := store.CreateTask(ctx, t)
			if err != nil {
				return nil, err
			}
			return &Output{
				Data:    created,
				Summary: fmt.Sprintf("Created task %q.", created.Title),
			}, nil
		},
	}
}

func getTaskTool(store task.Store) Definition {
	return Definition{
		Name:        "get_task",
		Description: "Fetch a single task by its ID.",
		Params: []Param{
			{Name: "id", Type: "string", Description: "Task ID", Required: true},
		},
		Permission: PermissionRead,
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			id, err := args.RequireString("id")
			if err != nil {
				return nil, err
			}
			t, err := store.GetTask(ctx, id)
			if err != nil {
				return nil, err
			}
			if t == nil {
				return nil, Errorf("task not found: %s", id)
			}
			return &Output{Data: t, Summary: fmt.Sprintf("Task %q is %s.", t.Title, t.Status)}, nil
		},
	}
}

func listTasksTool(store task.Store) Definition {
	return Definition{
		Name:        "list_tasks",
		Description: "List tasks, optionally filtered by status, priority or a search string.",
		Params: []Param{
			{Name: "status", Type: "string", Description: "Filter by status", Enum: []string{"todo", "in_progress", "done", "archived"}},
			{Name: "priority", Type: "string", Description: "Filter by priority", Enum: []string{"low", "medium", "high"}},
			{Name: "search", Type: "string", Description: "Match against title and description"},
			{Name: "limit", Type: "integer", Description: "Maximum number of tasks to return"},
		},
		Permission: PermissionRead,
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			filter := task.Filter{
				Status:   task.Status(args.GetString("status", "")),
				Priority: task.Priority(args.GetString("priority", "")),
				Search:   args.GetString("search", ""),
				Limit:    args.GetInt("limit", 20),
			}
			tasks, err := store.ListTasks(ctx, filter)
			if err != nil {
				return nil, err
			}
			if tasks == nil {
				tasks = []task.Task{}
			}
			return &Output{Data: tasks, Summary: fmt.Sprintf("Found %d tasks.", len(tasks))}, nil
		},
	}
}

func updateTaskTool(store task.Store) Definition {
	return Definition{
		Name:        "update_task",
		Description: "Update fields on an existing task. Only the provided fields change.",
		Params: []Param{
			{Name: "id", Type: "string", Description: "Task ID", Required: true},
			{Name: "title", Type: "string", Description: "New title"},
			{Name: "description", Type: "string", Description: "New description"},
			{Name: "status", Type: "string", Description: "New status", Enum: []string{"todo", "in_progress", "done", "archived"}},
			{Name: "priority", Type: "string", Description: "New priority", Enum: []string{"low", "medium", "high"}},
			{Name: "due_date", Type: "string", Description: "New due date in YYYY-MM-DD format"},
		},
		Permission: PermissionWrite,
		Mutating:   true,
		Plan: func(ctx context.Context, args Args) ([]impact.Change, error) {
			id := args.GetString("id", "")
			target := "Task: " + id
			old := map[string]string{}
			if current, err := store.GetTask(ctx, id); err == nil && current != nil {
				target = "Task: " + current.Title
				old["title"] = current.Title
				old["description"] = current.Description
				old["status"] = string(current.Status)
				old["priority"] = string(current.Priority)
			}

			var changes []impact.Change
			for _, field := range []string{"title", "description", "status", "priority", "due_date"} {
				v, ok := args[field].(string)
				if !ok {
					continue
				}
				changes = append(changes, impact.Change{
					Type:        impact.ChangeUpdate,
					Target:      target,
					Field:       field,
					OldValue:    old[field],
					NewValue:    v,
					Description: fmt.Sprintf("Set %s to %q", field, v),
				})
			}
			return changes, nil
		},
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			id, err := args.RequireString("id")
			if err != nil {
				return nil, err
			}

			var upd task.Update
			fields := 0
			if v, ok := args["title"].(string); ok {
				upd.Title = &v
				fields++
			}
			if v, ok := args["description"].(string); ok {
				upd.Description = &v
				fields++
			}
			if v, ok := args["status"].(string); ok {
				status := task.Status(v)
				upd.Status = &status
				fields++
			}
			if v, ok := args["priority"].(string); ok {
				priority := task.Priority(v)
				upd.Priority = &priority
				fields++
			}
			if v, ok := args["due_date"].(string); ok {
				due, err := time.Parse(dueDateLayout, v)
				if err != nil {
					return nil, Errorf("invalid due_date %q, expected YYYY-MM-DD", v)
				}
				upd.DueDate = &due
				fields++
			}
			if fields == 0 {
				return nil, Errorf("nothing to update: provide at least one field")
			}

			updated, err := store.UpdateTask(ctx, id, upd)
			if err != nil {
				return nil, err
			}
			if updated == nil {
				return nil, Errorf("task not found: %s", id)
			}
			return &Output{Data: updated, Summary: fmt.Sprintf("Updated task %q.", updated.Title)}, nil
		},
	}
}

func completeTaskTool(store task.Store) Definition {
	return Definition{
		Name:        "complete_task",
		Description: "Mark a task as done.",
		Params: []Param{
			{Name: "id", Type: "string", Description: "Task ID", Required: true},
		},
		Permission: PermissionWrite,
		Mutating:   true,
		Plan: func(ctx context.Context, args Args) ([]impact.Change, error) {
			return statusChangePlan(ctx, store, args.GetString("id", ""), task.StatusDone)
		},
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			id, err := args.RequireString("id")
			if err != nil {
				return nil, err
			}
			done := task.StatusDone
			updated, err := store.UpdateTask(ctx, id, task.Update{Status: &done})
			if err != nil {
				return nil, err
			}
			if updated == nil {
				return nil, Errorf("task not found: %s", id)
			}
			return &Output{Data: updated, Summary: fmt.Sprintf("Marked %q as done.", updated.Title)}, nil
		},
	}
}

func archiveTaskTool(store task.Store) Definition {
	return Definition{
		Name:        "archive_task",
		Description: "Archive a task so it no longer shows in active lists. Reversible.",
		Params: []Param{
			{Name: "id", Type: "string", Description: "Task ID", Required: true},
		},
		Permission: PermissionWrite,
		Mutating:   true,
		Plan: func(ctx context.Context, args Args) ([]impact.Change, error) {
			id := args.GetString("id", "")
			target := "Task: " + id
			if current, err := store.GetTask(ctx, id); err == nil && current != nil {
				target = "Task: " + current.Title
			}
			return []impact.Change{{
				Type:        impact.ChangeArchive,
				Target:      target,
				Description: "Archive the task",
			}}, nil
		},
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			id, err := args.RequireString("id")
			if err != nil {
				return nil, err
			}
			updated, err := store.ArchiveTask(ctx, id)
			if err != nil {
				return nil, err
			}
			if updated == nil {
				return nil, Errorf("task not found: %s", id)
			}
			return &Output{Data: updated, Summary: fmt.Sprintf("Archived task %q.", updated.Title)}, nil
		},
	}
}

func deleteTaskTool(store task.Store) Definition {
	return Definition{
		Name:        "delete_task",
		Description: "Permanently delete a task. This cannot be undone; archiving is the reversible alternative.",
		Params: []Param{
			{Name: "id", Type: "string", Description: "Task ID", Required: true},
		},
		Permission: PermissionAdmin,
		Mutating:   true,
		Plan: func(ctx context.Context, args Args) ([]impact.Change, error) {
			id := args.GetString("id", "")
			target := "Task: " + id
			oldValue := ""
			if current, err := store.GetTask(ctx, id); err == nil && current != nil {
				target = "Task: " + current.Title
				oldValue = current.Title
			}
			return []impact.Change{{
				Type:        impact.ChangeDelete,
				Target:      target,
				OldValue:    oldValue,
				Description: "Permanently delete the task",
			}}, nil
		},
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			id, err := args.RequireString("id")
			if err != nil {
				return nil, err
			}
			t, err := store.GetTask(ctx, id)
			if err != nil {
				return nil, err
			}
			if t == nil {
				return nil, Errorf("task not found: %s", id)
			}
			if err := store.DeleteTask(ctx, id); err != nil {
				return nil, err
			}
			return &Output{Summary: fmt.Sprintf("Deleted task %q.", t.Title)}, nil
		},
	}
}

func startSessionTool(store task.Store) Definition {
	return Definition{
		Name:        "start_session",
		Description: "Start a focus or break session, optionally linked to a task.",
		Params: []Param{
			{Name: "kind", Type: "string", Description: "Session kind", Enum: []string{"focus", "break"}},
			{Name: "task_id", Type: "string", Description: "Task to work on"},
			{Name: "note", Type: "string", Description: "What this session is for"},
		},
		Permission: PermissionWrite,
		Mutating:   true,
		Plan: func(ctx context.Context, args Args) ([]impact.Change, error) {
			kind := args.GetString("kind", string(task.SessionFocus))
			return []impact.Change{{
				Type:        impact.ChangeCreate,
				Target:      "Session: " + kind,
				Description: fmt.Sprintf("Start a %s session", kind),
			}}, nil
		},
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			if active, err := store.ActiveSession(ctx); err != nil {
				return nil, err
			} else if active != nil {
				return nil, Errorf("a session is already active since %s; stop it first", active.StartedAt.Format(time.RFC3339))
			}

			sess := task.Session{
				Kind:   task.SessionKind(args.GetString("kind", string(task.SessionFocus))),
				TaskID: args.GetString("task_id", ""),
				Note:   args.GetString("note", ""),
			}
			if sess.TaskID != "" {
				t, err := store.GetTask(ctx, sess.TaskID)
				if err != nil {
					return nil, err
				}
				if t == nil {
					return nil, Errorf("task not found: %s", sess.TaskID)
				}
			}
			started, err := store.StartSession(ctx, sess)
			if err != nil {
				return nil, err
			}
			return &Output{Data: started, Summary: fmt.Sprintf("Started a %s session.", started.Kind)}, nil
		},
	}
}

func stopSessionTool(store task.Store) Definition {
	return Definition{
		Name:        "stop_session",
		Description: "Stop the currently active session.",
		Permission:  PermissionWrite,
		Mutating:    true,
		Plan: func(ctx context.Context, args Args) ([]impact.Change, error) {
			return []impact.Change{{
				Type:        impact.ChangeUpdate,
				Target:      "Session",
				Field:       "ended_at",
				Description: "End the active session",
			}}, nil
		},
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			stopped, err := store.StopSession(ctx)
			if err != nil {
				return nil, err
			}
			if stopped == nil {
				return nil, Errorf("no session is active")
			}
			minutes := int(stopped.Duration(time.Now().UTC()).Minutes())
			return &Output{
				Data:    stopped,
				Summary: fmt.Sprintf("Stopped the %s session after %d minutes.", stopped.Kind, minutes),
			}, nil
		},
	}
}

func getStatsTool(store task.Store) Definition {
	return Definition{
		Name:        "get_stats",
		Description: "Summarize productivity over the last N days: completions, focus time, streak.",
		Params: []Param{
			{Name: "days", Type: "integer", Description: "Window size in days, default 7"},
		},
		Permission: PermissionRead,
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			days := args.GetInt("days", 7)
			if days <= 0 {
				days = 7
			}
			since := time.Now().UTC().AddDate(0, 0, -days)
			stats, err := store.Stats(ctx, since)
			if err != nil {
				return nil, err
			}
			return &Output{
				Data: stats,
				Summary: fmt.Sprintf("Last %d days: %d tasks completed, %.0f focus minutes, %d day streak.",
					days, stats.CompletedTasks, stats.FocusMinutes, stats.StreakDays),
			}, nil
		},
	}
}

func statusChangePlan(ctx context.Context, store task.Store, id string, to task.Status) ([]impact.Change, error) {
	target := "Task: " + id
	oldStatus := ""
	if current, err := store.GetTask(ctx, id); err == nil && current != nil {
		target = "Task: " + current.Title
		oldStatus = string(current.Status)
	}
	return []impact.Change{{
		Type:        impact.ChangeUpdate,
		Target:      target,
		Field:       "status",
		OldValue:    oldStatus,
		NewValue:    string(to),
		Description: fmt.Sprintf("Change status to %s", to),
	}}, nil
}
