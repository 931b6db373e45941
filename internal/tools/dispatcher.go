package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Dispatcher executes tools through a safety boundary: arguments are
// validated before the tool body runs, panics and errors are converted
// to failed Results, and every dispatch produces exactly one Result.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given registry. A zero
// timeout disables the per-tool deadline.
func NewDispatcher(registry *Registry, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		timeout:  timeout,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Registry returns the underlying tool registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Lookup returns the definition for a tool name.
func (d *Dispatcher) Lookup(name string) (Definition, bool) {
	t, ok := d.registry.Get(name)
	if !ok {
		return Definition{}, false
	}
	return t.Definition(), true
}

// Dispatch validates args against the tool's declared schema and runs
// the tool. The tool body is never invoked when validation fails.
// Panics inside the tool are recovered and reported as failed Results.
// Dispatch itself never returns an error to the caller; all failure
// modes are folded into the Result so the conversation can continue.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) Result {
	tool, ok := d.registry.Get(name)
	if !ok {
		return Failf("unknown_tool", "no tool named %q", name)
	}
	def := tool.Definition()

	if err := def.ValidateArgs(args); err != nil {
		d.logger.Warn("tool argument validation failed", "tool", name, "error", err)
		return Failf("invalid_args", "%v", err)
	}
	args = def.ApplyDefaults(args)

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	result := d.run(ctx, tool, def, args)
	d.logger.Debug("tool dispatched",
		"tool", name,
		"success", result.Success,
		"duration", time.Since(start),
	)
	return result
}

// run invokes the tool body with panic containment.
func (d *Dispatcher) run(ctx context.Context, tool Tool, def Definition, args map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", def.Name, "panic", r)
			result = Failf("panic", "tool %s panicked: %v", def.Name, r)
		}
	}()

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return Failf("execution_error", "%v", err)
	}
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("execution_error: tool %s failed without detail", def.Name)
	}
	return result
}
