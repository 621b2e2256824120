package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func echoTool() Definition {
	return Definition{
		Name:        "echo",
		Description: "Repeats the input back.",
		Params: []Param{
			{Name: "text", Type: "string", Description: "Text to repeat", Required: true},
			{Name: "times", Type: "integer", Description: "Repeat count"},
		},
		Permission: PermissionRead,
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			text, err := args.RequireString("text")
			if err != nil {
				return nil, err
			}
			return &Output{Data: text, Summary: "Echoed " + text}, nil
		},
	}
}

func TestRegisterAndList(t *testing.T) {
	r := NewRegistry(PermissionRead)

	if err := r.Register(echoTool()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(Definition{
		Name:    "second",
		Handler: func(ctx context.Context, args Args) (*Output, error) { return nil, nil },
	}); err != nil {
		t.Fatalf("Register second: %v", err)
	}

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("List returned %d tools, want 2", len(list))
	}
	if list[0].Name != "echo" || list[1].Name != "second" {
		t.Errorf("List order = %q, %q", list[0].Name, list[1].Name)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry(PermissionRead)
	if err := r.Register(echoTool()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(echoTool()); err == nil {
		t.Error("expected error registering duplicate name")
	}
}

func TestRegisterRequiresHandler(t *testing.T) {
	r := NewRegistry(PermissionRead)
	if err := r.Register(Definition{Name: "broken"}); err == nil {
		t.Error("expected error for definition without handler")
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(PermissionAdmin)
	ctx := context.Background()

	first := r.Execute(ctx, "missing_tool", map[string]any{"x": 1})
	if first.Success {
		t.Error("unknown tool must not succeed")
	}
	if first.Error != "unknown tool: missing_tool" {
		t.Errorf("error = %q", first.Error)
	}
	if first.UserMessage == "" {
		t.Error("expected a user message")
	}

	// Identical invalid calls always produce the identical failure shape.
	second := r.Execute(ctx, "missing_tool", map[string]any{"x": 1})
	if first.Error != second.Error || first.UserMessage != second.UserMessage ||
		first.Success != second.Success || first.Metadata.ToolName != second.Metadata.ToolName {
		t.Errorf("unknown-tool results differ:\n%+v\n%+v", first, second)
	}
}

func TestExecuteValidation(t *testing.T) {
	r := NewRegistry(PermissionAdmin)
	called := false
	def := Definition{
		Name: "strict",
		Params: []Param{
			{Name: "alpha", Type: "string", Required: true},
			{Name: "beta", Type: "integer", Required: true},
			{Name: "mode", Type: "string", Enum: []string{"fast", "slow"}},
		},
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			called = true
			return &Output{}, nil
		},
	}
	if err := r.Register(def); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantField string
	}{
		{"missing first required", map[string]any{"beta": 1.0}, "alpha"},
		{"missing second required", map[string]any{"alpha": "a"}, "beta"},
		{"wrong type", map[string]any{"alpha": 5.0, "beta": 1.0}, "alpha"},
		{"bad enum", map[string]any{"alpha": "a", "beta": 1.0, "mode": "warp"}, "mode"},
		{"both missing reports first", map[string]any{}, "alpha"},
	}

	for _, tt := range tests {
		res := r.Execute(ctx, "strict", tt.args)
		if res.Success {
			t.Errorf("%s: expected failure", tt.name)
			continue
		}
		want := fmt.Sprintf("invalid arguments for strict: %s", tt.wantField)
		if !strings.HasPrefix(res.Error, want) {
			t.Errorf("%s: error = %q, want prefix %q", tt.name, res.Error, want)
		}
	}

	if called {
		t.Error("handler must not run when validation fails")
	}

	ok := r.Execute(ctx, "strict", map[string]any{"alpha": "a", "beta": 2.0, "mode": "fast"})
	if !ok.Success {
		t.Errorf("valid args failed: %+v", ok)
	}
	if !called {
		t.Error("handler should run for valid args")
	}
}

func TestExecutePermissionDenied(t *testing.T) {
	r := NewRegistry(PermissionRead)
	called := false
	def := Definition{
		Name:       "wipe",
		Permission: PermissionAdmin,
		Mutating:   true,
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			called = true
			return &Output{}, nil
		},
	}
	if err := r.Register(def); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res := r.Execute(context.Background(), "wipe", nil)
	if res.Success {
		t.Error("expected permission failure")
	}
	if called {
		t.Error("handler must not run without permission")
	}
	if res.Error != "tool wipe requires admin permission, caller has read" {
		t.Errorf("error = %q", res.Error)
	}
	if !res.RequiresConfirmation {
		t.Error("denied mutating tool should flag requires_confirmation")
	}
	if res.Metadata.DataModified {
		t.Error("nothing was modified")
	}
}

func TestExecuteHandlerErrors(t *testing.T) {
	r := NewRegistry(PermissionAdmin)
	defs := []Definition{
		{
			Name: "explode",
			Handler: func(ctx context.Context, args Args) (*Output, error) {
				return nil, errors.New("pq: connection reset by peer at socket 0x7f")
			},
		},
		{
			Name: "polite_fail",
			Handler: func(ctx context.Context, args Args) (*Output, error) {
				return nil, Errorf("task not found: t-42")
			},
		},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	ctx := context.Background()

	res := r.Execute(ctx, "explode", nil)
	if res.Success {
		t.Error("expected failure")
	}
	if res.Error == "" || res.Error == res.UserMessage {
		t.Errorf("raw error should be preserved separately, got error=%q user=%q", res.Error, res.UserMessage)
	}
	for _, leak := range []string{"pq:", "0x7f", "socket"} {
		if strings.Contains(res.UserMessage, leak) {
			t.Errorf("user message leaks internals: %q", res.UserMessage)
		}
	}

	res = r.Execute(ctx, "polite_fail", nil)
	if res.Success {
		t.Error("expected failure")
	}
	if res.UserMessage != "task not found: t-42" {
		t.Errorf("user error should pass through, got %q", res.UserMessage)
	}
}

func TestExecuteSuccessMetadata(t *testing.T) {
	r := NewRegistry(PermissionWrite)
	def := Definition{
		Name:       "touch",
		Permission: PermissionWrite,
		Mutating:   true,
		Handler: func(ctx context.Context, args Args) (*Output, error) {
			return &Output{Data: map[string]any{"id": "t1"}, Summary: "Touched t1."}, nil
		},
	}
	if err := r.Register(def); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res := r.Execute(context.Background(), "touch", nil)
	if !res.Success {
		t.Fatalf("Execute failed: %+v", res)
	}
	if !res.Metadata.DataModified {
		t.Error("successful mutating tool must set data_modified")
	}
	if res.Metadata.ToolName != "touch" {
		t.Errorf("tool name = %q", res.Metadata.ToolName)
	}
	if res.Metadata.Permission != PermissionWrite {
		t.Errorf("permission = %q", res.Metadata.Permission)
	}
	if res.Metadata.ExecutionTimeMs < 0 {
		t.Errorf("execution time = %d", res.Metadata.ExecutionTimeMs)
	}
	if res.UserMessage != "Touched t1." {
		t.Errorf("user message = %q", res.UserMessage)
	}
}

func TestSchema(t *testing.T) {
	def := echoTool()
	schema := def.Schema()

	if schema["type"] != "object" {
		t.Errorf("schema type = %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties = %T", schema["properties"])
	}
	text, ok := props["text"].(map[string]any)
	if !ok || text["type"] != "string" {
		t.Errorf("text property = %+v", props["text"])
	}
	required, ok := schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "text" {
		t.Errorf("required = %v", schema["required"])
	}
}

func TestPermissionOrdering(t *testing.T) {
	if !PermissionAdmin.Allows(PermissionRead) {
		t.Error("admin should allow read tools")
	}
	if !PermissionWrite.Allows(PermissionWrite) {
		t.Error("write should allow write tools")
	}
	if PermissionRead.Allows(PermissionWrite) {
		t.Error("read must not allow write tools")
	}
	if PermissionWrite.Allows(PermissionAdmin) {
		t.Error("write must not allow admin tools")
	}
}
