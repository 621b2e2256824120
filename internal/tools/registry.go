package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tempohq/tempo/internal/impact"
)

// Registry holds tool definitions and executes calls against them under a
// fixed permission grant. The registry itself is stateless between calls;
// all data lives in the stores the handlers reach into.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Definition
	order   []string
	granted Permission
}

// NewRegistry creates an empty registry whose callers hold the given
// permission grant.
func NewRegistry(granted Permission) *Registry {
	return &Registry{
		tools:   make(map[string]*Definition),
		granted: granted,
	}
}

// Register adds a tool definition. Names must be unique.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Name)
	}
	if def.Permission == "" {
		def.Permission = PermissionRead
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	r.tools[def.Name] = &def
	r.order = append(r.order, def.Name)
	return nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// List returns all definitions in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.tools[name])
	}
	return out
}

// Granted returns the permission level callers of this registry hold.
func (r *Registry) Granted() Permission {
	return r.granted
}

// Execute runs the named tool. The algorithm is fixed: lookup, argument
// validation, permission check, then the handler under wall-clock timing.
// Nothing before the handler has side effects, and identical invalid
// calls always produce the same failure shape.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) *Result {
	def, ok := r.Get(name)
	if !ok {
		err := &NotFoundError{Tool: name}
		return &Result{
			Error:       err.Error(),
			UserMessage: fmt.Sprintf("I don't have a tool called %q.", name),
			Metadata:    Metadata{ToolName: name},
		}
	}

	meta := Metadata{ToolName: def.Name, Permission: def.Permission}

	if verr := validateArgs(def, args); verr != nil {
		return &Result{
			Error:       verr.Error(),
			UserMessage: fmt.Sprintf("I couldn't run %s: %s %s.", def.Name, verr.Field, verr.Reason),
			Metadata:    meta,
		}
	}

	if !r.granted.Allows(def.Permission) {
		perr := &PermissionError{Tool: def.Name, Required: def.Permission, Granted: r.granted}
		return &Result{
			Error:                perr.Error(),
			UserMessage:          fmt.Sprintf("I'm not allowed to do that: %s needs %s permission.", def.Name, def.Permission),
			RequiresConfirmation: def.Mutating,
			Metadata:             meta,
		}
	}

	start := time.Now()
	out, err := def.Handler(ctx, Args(args))
	meta.ExecutionTimeMs = time.Since(start).Milliseconds()

	if err != nil {
		res := &Result{Metadata: meta}
		var uerr *UserError
		if errors.As(err, &uerr) {
			res.Error = uerr.Msg
			res.UserMessage = uerr.Msg
		} else {
			execErr := &ExecutionError{Tool: def.Name, Err: err}
			res.Error = execErr.Error()
			res.UserMessage = fmt.Sprintf("Something went wrong while running %s.", def.Name)
		}
		return res
	}

	if out == nil {
		out = &Output{}
	}
	meta.DataModified = def.Mutating
	return &Result{
		Success:     true,
		Data:        out.Data,
		UserMessage: out.Summary,
		Metadata:    meta,
	}
}

// PlanChanges runs the tool's change preview, used for impact analysis
// before a mutating execution. Tools without a Plan func yield no
// changes, which analyzes as low impact.
func (r *Registry) PlanChanges(ctx context.Context, name string, args map[string]any) ([]impact.Change, error) {
	def, ok := r.Get(name)
	if !ok {
		return nil, &NotFoundError{Tool: name}
	}
	if def.Plan == nil {
		return nil, nil
	}
	return def.Plan(ctx, Args(args))
}

func validateArgs(def *Definition, args map[string]any) *ValidationError {
	for _, p := range def.Params {
		v, present := args[p.Name]
		if !present || v == nil {
			if p.Required {
				return &ValidationError{Tool: def.Name, Field: p.Name, Reason: "is required"}
			}
			continue
		}
		if !typeMatches(p.Type, v) {
			return &ValidationError{Tool: def.Name, Field: p.Name, Reason: fmt.Sprintf("must be a %s", p.Type)}
		}
		if len(p.Enum) > 0 {
			s, _ := v.(string)
			if !containsString(p.Enum, s) {
				return &ValidationError{Tool: def.Name, Field: p.Name, Reason: fmt.Sprintf("must be one of %v", p.Enum)}
			}
		}
	}
	return nil
}

func typeMatches(typ string, v any) bool {
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "number", "integer":
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
