// Package tools holds the registry of actions the assistant can take and
// the execution bridge that turns model tool calls into guarded store
// operations. Every failure mode is folded into a Result envelope; Execute
// never returns a Go error, so the reasoning loop can always feed the
// outcome back to the model.
package tools

import (
	"context"
	"fmt"

	"github.com/tempohq/tempo/internal/impact"
)

// Permission is the access level a tool requires and a caller is granted.
// Levels are ordered: read < write < admin.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

var permissionRank = map[Permission]int{
	PermissionRead:  0,
	PermissionWrite: 1,
	PermissionAdmin: 2,
}

// Allows reports whether a caller granted p may run a tool requiring required.
func (p Permission) Allows(required Permission) bool {
	return permissionRank[p] >= permissionRank[required]
}

// Param describes a single tool parameter. Params are validated in
// declaration order, so the first failing field is deterministic.
type Param struct {
	Name        string
	Type        string // "string", "number", "integer", "boolean"
	Description string
	Required    bool
	Enum        []string
}

// HandlerFunc executes the tool. A returned *UserError carries text safe
// to show the user verbatim; any other error is treated as internal and
// sanitized.
type HandlerFunc func(ctx context.Context, args Args) (*Output, error)

// PlanFunc previews the data changes a mutating tool would make, for
// impact analysis before execution. It must not mutate anything itself.
type PlanFunc func(ctx context.Context, args Args) ([]impact.Change, error)

// Output is what a handler produces on success.
type Output struct {
	Data    any
	Summary string
}

// Definition describes a registered tool.
type Definition struct {
	Name        string
	Description string
	Params      []Param
	Permission  Permission
	Mutating    bool
	Plan        PlanFunc
	Handler     HandlerFunc
}

// Schema renders the parameter list as a JSON-schema object, the shape
// both LLM tool-calling APIs and MCP expect.
func (d *Definition) Schema() map[string]any {
	properties := map[string]any{}
	var required []string
	for _, p := range d.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, v := range p.Enum {
				enum[i] = v
			}
			prop["enum"] = enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Result is the envelope every execution produces, success or not.
type Result struct {
	Success              bool     `json:"success"`
	Data                 any      `json:"data,omitempty"`
	Error                string   `json:"error,omitempty"`
	UserMessage          string   `json:"user_message"`
	RequiresConfirmation bool     `json:"requires_confirmation,omitempty"`
	Metadata             Metadata `json:"metadata"`
}

// Metadata records how an execution went.
type Metadata struct {
	ExecutionTimeMs int64      `json:"execution_time_ms"`
	ToolName        string     `json:"tool_name"`
	Permission      Permission `json:"permission"`
	DataModified    bool       `json:"data_modified"`
}

// Args wraps a decoded tool-call argument object with typed accessors.
// Validation has already run by the time a handler sees these, so the
// accessors only need to coerce, not police.
type Args map[string]any

// RequireString returns the named string argument or an error if absent.
func (a Args) RequireString(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s is not a string", key)
	}
	return s, nil
}

// GetString returns the named string argument or def.
func (a Args) GetString(key, def string) string {
	if s, ok := a[key].(string); ok && s != "" {
		return s
	}
	return def
}

// GetInt returns the named numeric argument or def. JSON numbers decode
// as float64, so both forms are accepted.
func (a Args) GetInt(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// GetBool returns the named boolean argument or def.
func (a Args) GetBool(key string, def bool) bool {
	if b, ok := a[key].(bool); ok {
		return b
	}
	return def
}
