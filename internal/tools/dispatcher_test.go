package tools

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// recordingTool counts body invocations so tests can assert the body
// never ran on a contract violation.
type recordingTool struct {
	def     Definition
	calls   int
	result  Result
	err     error
	panicV  any
	gotArgs map[string]any
}

func (t *recordingTool) Definition() Definition { return t.def }

func (t *recordingTool) Execute(_ context.Context, args map[string]any) (Result, error) {
	t.calls++
	t.gotArgs = args
	if t.panicV != nil {
		panic(t.panicV)
	}
	return t.result, t.err
}

func testDef() Definition {
	return Definition{
		Name:        "echo",
		Description: "Echo a message.",
		Parameters: []Parameter{
			{Name: "message", Type: "string", Description: "text to echo", Required: true},
			{Name: "count", Type: "integer", Description: "repetitions", Default: float64(1)},
		},
	}
}

func newTestDispatcher(t *testing.T, tool Tool) *Dispatcher {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(reg, 0, logger)
}

func TestDispatchSuccess(t *testing.T) {
	tool := &recordingTool{def: testDef(), result: Ok("hello")}
	d := newTestDispatcher(t, tool)

	res := d.Dispatch(context.Background(), "echo", map[string]any{"message": "hello"})
	if !res.Success {
		t.Fatalf("Dispatch failed: %s", res.Error)
	}
	if res.Output != "hello" {
		t.Errorf("Output = %q", res.Output)
	}
	if tool.calls != 1 {
		t.Errorf("body invoked %d times, want 1", tool.calls)
	}
}

func TestDispatchMissingRequiredNeverInvokesBody(t *testing.T) {
	tool := &recordingTool{def: testDef(), result: Ok("hello")}
	d := newTestDispatcher(t, tool)

	res := d.Dispatch(context.Background(), "echo", map[string]any{"count": float64(2)})
	if res.Success {
		t.Fatal("expected validation failure")
	}
	if !strings.HasPrefix(res.Error, "invalid_args:") {
		t.Errorf("Error = %q, want invalid_args prefix", res.Error)
	}
	if tool.calls != 0 {
		t.Errorf("body invoked %d times on invalid args, want 0", tool.calls)
	}
}

func TestDispatchWrongTypeNeverInvokesBody(t *testing.T) {
	tool := &recordingTool{def: testDef(), result: Ok("hello")}
	d := newTestDispatcher(t, tool)

	res := d.Dispatch(context.Background(), "echo", map[string]any{"message": 42})
	if res.Success {
		t.Fatal("expected validation failure for mistyped argument")
	}
	if tool.calls != 0 {
		t.Errorf("body invoked %d times, want 0", tool.calls)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	tool := &recordingTool{def: testDef()}
	d := newTestDispatcher(t, tool)

	res := d.Dispatch(context.Background(), "nonexistent", nil)
	if res.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if !strings.HasPrefix(res.Error, "unknown_tool:") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestDispatchAppliesDefaults(t *testing.T) {
	tool := &recordingTool{def: testDef(), result: Ok("done")}
	d := newTestDispatcher(t, tool)

	d.Dispatch(context.Background(), "echo", map[string]any{"message": "hi"})
	if got := tool.gotArgs["count"]; got != float64(1) {
		t.Errorf("default count = %v, want 1", got)
	}
}

func TestDispatchPanicContained(t *testing.T) {
	tool := &recordingTool{def: testDef(), panicV: "boom"}
	d := newTestDispatcher(t, tool)

	res := d.Dispatch(context.Background(), "echo", map[string]any{"message": "hi"})
	if res.Success {
		t.Fatal("panicking tool must yield a failed result")
	}
	if !strings.HasPrefix(res.Error, "panic:") || !strings.Contains(res.Error, "boom") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestDispatchErrorFolded(t *testing.T) {
	tool := &recordingTool{def: testDef(), err: errors.New("disk full")}
	d := newTestDispatcher(t, tool)

	res := d.Dispatch(context.Background(), "echo", map[string]any{"message": "hi"})
	if res.Success {
		t.Fatal("erroring tool must yield a failed result")
	}
	if !strings.HasPrefix(res.Error, "execution_error:") || !strings.Contains(res.Error, "disk full") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestDispatchTimeout(t *testing.T) {
	slow := &Func{
		Def: Definition{Name: "sleep", Description: "sleeps"},
		Fn: func(ctx context.Context, _ map[string]any) (Result, error) {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(5 * time.Second):
				return Ok("woke"), nil
			}
		},
	}
	reg := NewRegistry()
	reg.MustRegister(slow)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(reg, 20*time.Millisecond, logger)

	res := d.Dispatch(context.Background(), "sleep", nil)
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(res.Error, "context deadline exceeded") {
		t.Errorf("Error = %q", res.Error)
	}
}
