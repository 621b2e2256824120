package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/tempohq/tempo/internal/db"
	"github.com/tempohq/tempo/internal/impact"
	"github.com/tempohq/tempo/internal/task"
)

func setupRegistry(t *testing.T) (*Registry, task.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := task.NewSQLStore(database)
	r := NewRegistry(PermissionAdmin)
	if err := RegisterBuiltin(r, store); err != nil {
		t.Fatalf("RegisterBuiltin: %v", err)
	}
	return r, store
}

func createViaTool(t *testing.T, r *Registry, title string) string {
	t.Helper()
	res := r.Execute(context.Background(), "create_task", map[string]any{"title": title})
	if !res.Success {
		t.Fatalf("create_task failed: %+v", res)
	}
	created, ok := res.Data.(*task.Task)
	if !ok {
		t.Fatalf("create_task data = %T", res.Data)
	}
	return created.ID
}

func TestBuiltinRoster(t *testing.T) {
	r, _ := setupRegistry(t)

	want := []string{
		"create_task", "get_task", "list_tasks", "update_task", "complete_task",
		"archive_task", "delete_task", "start_session", "stop_session", "get_stats",
	}
	list := r.List()
	if len(list) != len(want) {
		t.Fatalf("registered %d tools, want %d", len(list), len(want))
	}
	for i, def := range list {
		if def.Name != want[i] {
			t.Errorf("tool[%d] = %q, want %q", i, def.Name, want[i])
		}
	}

	// Every mutating tool must supply a change preview.
	for _, def := range list {
		if def.Mutating && def.Plan == nil {
			t.Errorf("mutating tool %s has no plan", def.Name)
		}
		if !def.Mutating && def.Plan != nil {
			t.Errorf("read-only tool %s should not have a plan", def.Name)
		}
	}
}

func TestCreateTaskTool(t *testing.T) {
	r, store := setupRegistry(t)
	ctx := context.Background()

	res := r.Execute(ctx, "create_task", map[string]any{
		"title":    "review quarterly report",
		"priority": "high",
		"due_date": "2026-09-01",
	})
	if !res.Success {
		t.Fatalf("create_task failed: %+v", res)
	}
	if !res.Metadata.DataModified {
		t.Error("create_task should mark data modified")
	}
	if !strings.Contains(res.UserMessage, "review quarterly report") {
		t.Errorf("user message = %q", res.UserMessage)
	}

	tasks, err := store.ListTasks(ctx, task.Filter{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Priority != task.PriorityHigh {
		t.Errorf("stored tasks = %+v", tasks)
	}
}

func TestCreateTaskToolBadDueDate(t *testing.T) {
	r, store := setupRegistry(t)

	res := r.Execute(context.Background(), "create_task", map[string]any{
		"title":    "x",
		"due_date": "next tuesday",
	})
	if res.Success {
		t.Fatal("expected failure for malformed due date")
	}
	if !strings.Contains(res.UserMessage, "YYYY-MM-DD") {
		t.Errorf("user message = %q", res.UserMessage)
	}

	tasks, err := store.ListTasks(context.Background(), task.Filter{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Error("failed create must not leave a task behind")
	}
}

func TestGetTaskToolNotFound(t *testing.T) {
	r, _ := setupRegistry(t)

	res := r.Execute(context.Background(), "get_task", map[string]any{"id": "missing"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.UserMessage != "task not found: missing" {
		t.Errorf("user message = %q", res.UserMessage)
	}
}

func TestUpdateTaskToolPlanAndExecute(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()
	id := createViaTool(t, r, "write design doc")

	changes, err := r.PlanChanges(ctx, "update_task", map[string]any{"id": id, "status": "in_progress"})
	if err != nil {
		t.Fatalf("PlanChanges: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes = %+v", changes)
	}
	change := changes[0]
	if change.Type != impact.ChangeUpdate || change.Field != "status" {
		t.Errorf("change = %+v", change)
	}
	if change.Target != "Task: write design doc" {
		t.Errorf("target = %q", change.Target)
	}
	if change.OldValue != "todo" || change.NewValue != "in_progress" {
		t.Errorf("old/new = %q/%q", change.OldValue, change.NewValue)
	}
	// Status is a sensitive field, so this previews as medium impact.
	if got := impact.Analyze(changes); got != impact.Medium {
		t.Errorf("impact = %q, want medium", got)
	}

	res := r.Execute(ctx, "update_task", map[string]any{"id": id, "status": "in_progress"})
	if !res.Success {
		t.Fatalf("update_task failed: %+v", res)
	}
	updated := res.Data.(*task.Task)
	if updated.Status != task.StatusInProgress {
		t.Errorf("status = %q", updated.Status)
	}
}

func TestUpdateTaskToolNothingToUpdate(t *testing.T) {
	r, _ := setupRegistry(t)
	id := createViaTool(t, r, "lonely")

	res := r.Execute(context.Background(), "update_task", map[string]any{"id": id})
	if res.Success {
		t.Fatal("expected failure when no fields are given")
	}
	if !strings.Contains(res.UserMessage, "nothing to update") {
		t.Errorf("user message = %q", res.UserMessage)
	}
}

func TestCompleteTaskTool(t *testing.T) {
	r, store := setupRegistry(t)
	ctx := context.Background()
	id := createViaTool(t, r, "finish slides")

	res := r.Execute(ctx, "complete_task", map[string]any{"id": id})
	if !res.Success {
		t.Fatalf("complete_task failed: %+v", res)
	}

	got, err := store.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != task.StatusDone || got.CompletedAt == nil {
		t.Errorf("task after completion = %+v", got)
	}
}

func TestDeleteTaskToolPlanIsHighImpact(t *testing.T) {
	r, store := setupRegistry(t)
	ctx := context.Background()
	id := createViaTool(t, r, "old notes")

	changes, err := r.PlanChanges(ctx, "delete_task", map[string]any{"id": id})
	if err != nil {
		t.Fatalf("PlanChanges: %v", err)
	}
	if got := impact.Analyze(changes); got != impact.High {
		t.Errorf("delete impact = %q, want high", got)
	}
	if changes[0].Target != "Task: old notes" {
		t.Errorf("target = %q", changes[0].Target)
	}

	res := r.Execute(ctx, "delete_task", map[string]any{"id": id})
	if !res.Success {
		t.Fatalf("delete_task failed: %+v", res)
	}
	got, err := store.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got != nil {
		t.Error("task still present after delete_task")
	}
}

func TestArchiveTaskTool(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()
	id := createViaTool(t, r, "stale idea")

	res := r.Execute(ctx, "archive_task", map[string]any{"id": id})
	if !res.Success {
		t.Fatalf("archive_task failed: %+v", res)
	}

	list := r.Execute(ctx, "list_tasks", map[string]any{})
	tasks := list.Data.([]task.Task)
	if len(tasks) != 0 {
		t.Errorf("archived task still listed: %+v", tasks)
	}
}

func TestSessionTools(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()

	res := r.Execute(ctx, "stop_session", map[string]any{})
	if res.Success {
		t.Error("stop_session with no active session should fail politely")
	}
	if res.UserMessage != "no session is active" {
		t.Errorf("user message = %q", res.UserMessage)
	}

	res = r.Execute(ctx, "start_session", map[string]any{"kind": "focus", "note": "deep work"})
	if !res.Success {
		t.Fatalf("start_session failed: %+v", res)
	}

	res = r.Execute(ctx, "start_session", map[string]any{"kind": "break"})
	if res.Success {
		t.Error("second start_session should fail while one is active")
	}

	res = r.Execute(ctx, "stop_session", map[string]any{})
	if !res.Success {
		t.Fatalf("stop_session failed: %+v", res)
	}
	if !strings.Contains(res.UserMessage, "focus session") {
		t.Errorf("user message = %q", res.UserMessage)
	}
}

func TestStartSessionToolUnknownTask(t *testing.T) {
	r, _ := setupRegistry(t)

	res := r.Execute(context.Background(), "start_session", map[string]any{"task_id": "ghost"})
	if res.Success {
		t.Fatal("expected failure for unknown task link")
	}
	if res.UserMessage != "task not found: ghost" {
		t.Errorf("user message = %q", res.UserMessage)
	}
}

func TestGetStatsTool(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()

	id := createViaTool(t, r, "quick win")
	if res := r.Execute(ctx, "complete_task", map[string]any{"id": id}); !res.Success {
		t.Fatalf("complete_task failed: %+v", res)
	}

	res := r.Execute(ctx, "get_stats", map[string]any{"days": 7.0})
	if !res.Success {
		t.Fatalf("get_stats failed: %+v", res)
	}
	stats, ok := res.Data.(*task.Stats)
	if !ok {
		t.Fatalf("data = %T", res.Data)
	}
	if stats.CompletedTasks != 1 {
		t.Errorf("completed = %d", stats.CompletedTasks)
	}
	if !strings.Contains(res.UserMessage, "1 tasks completed") {
		t.Errorf("user message = %q", res.UserMessage)
	}
}

func TestReadOnlyGrantBlocksMutations(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := task.NewSQLStore(database)
	r := NewRegistry(PermissionRead)
	if err := RegisterBuiltin(r, store); err != nil {
		t.Fatalf("RegisterBuiltin: %v", err)
	}
	ctx := context.Background()

	res := r.Execute(ctx, "create_task", map[string]any{"title": "should not exist"})
	if res.Success {
		t.Fatal("read grant must not execute write tools")
	}
	if !strings.Contains(res.Error, "requires write permission") {
		t.Errorf("error = %q", res.Error)
	}
	if !res.RequiresConfirmation {
		t.Error("blocked mutating tool should flag requires_confirmation")
	}

	tasks, err := store.ListTasks(ctx, task.Filter{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Error("no task should have been created")
	}

	if list := r.Execute(ctx, "list_tasks", map[string]any{}); !list.Success {
		t.Errorf("read tool should still work: %+v", list)
	}
}
