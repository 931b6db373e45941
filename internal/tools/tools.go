// Package tools defines the tools available to the agent: their
// declared parameter schemas, the registry that holds them, and the
// dispatcher that validates arguments and contains failures.
package tools

import (
	"context"
	"fmt"
	"strings"
)

// Parameter declares one tool parameter.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, integer, number, boolean, object, array
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// Definition is the static declaration of a tool: what the LLM sees
// and what the dispatcher validates against.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category,omitempty"`
	Parameters  []Parameter `json:"parameters"`
	// Dangerous tools require explicit user confirmation before
	// execution. The engine suspends on them.
	Dangerous bool `json:"dangerous,omitempty"`
	// RequiresSandbox marks tools that must not run outside an
	// isolated environment.
	RequiresSandbox bool `json:"requires_sandbox,omitempty"`
}

// Result is the outcome of one tool execution. Exactly one Result is
// produced per dispatch, whether the tool succeeded, failed, or
// panicked.
type Result struct {
	Success  bool           `json:"success"`
	Output   string         `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// LLMMessage renders the result as text for the conversation log. The
// [OK]/[FAIL] framing lets a small model distinguish outcomes without
// parsing structure.
func (r Result) LLMMessage() string {
	if r.Success {
		if r.Output == "" {
			return "[OK] (no output)"
		}
		return "[OK] " + r.Output
	}
	return "[FAIL] " + r.Error
}

// Ok builds a successful result.
func Ok(output string) Result {
	return Result{Success: true, Output: output}
}

// Fail builds a failed result with a kind-prefixed error message.
func Fail(kind, msg string) Result {
	return Result{Success: false, Error: kind + ": " + msg}
}

// Failf is Fail with formatting.
func Failf(kind, format string, args ...any) Result {
	return Fail(kind, fmt.Sprintf(format, args...))
}

// Tool is a callable tool. Execute receives arguments already checked
// against the definition's parameter schema; object and array
// parameter values remain free-form.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// Func adapts a function to the Tool interface.
type Func struct {
	Def Definition
	Fn  func(ctx context.Context, args map[string]any) (Result, error)
}

func (f *Func) Definition() Definition { return f.Def }

func (f *Func) Execute(ctx context.Context, args map[string]any) (Result, error) {
	return f.Fn(ctx, args)
}

// String returns a one-line rendering of the definition for manifests.
func (d Definition) String() string {
	var params []string
	for _, p := range d.Parameters {
		name := p.Name
		if p.Required {
			name += "*"
		}
		params = append(params, fmt.Sprintf("%s: %s", name, p.Type))
	}
	flags := ""
	if d.Dangerous {
		flags = " [dangerous]"
	}
	return fmt.Sprintf("%s(%s)%s - %s", d.Name, strings.Join(params, ", "), flags, d.Description)
}

// StringArg extracts a string argument, empty if absent or mistyped.
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// IntArg extracts an integer argument. JSON numbers arrive as float64.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// BoolArg extracts a boolean argument.
func BoolArg(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}
