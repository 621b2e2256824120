package tools

import "fmt"

// NotFoundError is returned when no tool with the requested name is
// registered.
type NotFoundError struct {
	Tool string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Tool)
}

// ValidationError names the first parameter that failed schema validation.
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s: %s", e.Tool, e.Field, e.Reason)
}

// PermissionError is returned when the caller's grant does not cover the
// tool's required level.
type PermissionError struct {
	Tool     string
	Required Permission
	Granted  Permission
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("tool %s requires %s permission, caller has %s", e.Tool, e.Required, e.Granted)
}

// ExecutionError wraps an unexpected handler failure. Its text is kept
// for logs; the user-facing message is sanitized separately.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// UserError is a handler failure whose message is safe to show the user
// verbatim, e.g. "task not found". Handlers produce them with Errorf.
type UserError struct {
	Msg string
}

func (e *UserError) Error() string {
	return e.Msg
}

// Errorf builds a UserError.
func Errorf(format string, args ...any) *UserError {
	return &UserError{Msg: fmt.Sprintf(format, args...)}
}
