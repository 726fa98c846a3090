package tools

import (
	"fmt"
	"strings"
)

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// NotFoundError covers unknown tools, jobs, and rows the caller does not
// own. Authorization failures report identically to absence so existence
// never leaks.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// FieldError is one field-level schema violation.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries field-level detail so callers can render errors
// against the offending fields rather than a flat string.
type ValidationError struct {
	ToolName string
	Fields   []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Reason)
	}
	return fmt.Sprintf("invalid input for tool %q: %s", e.ToolName, strings.Join(parts, "; "))
}
