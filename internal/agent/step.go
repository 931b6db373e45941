// Package agent implements the execution engine: the state machine
// that alternates between model inference and tool execution, emitting
// observable steps to its caller.
package agent

import "github.com/Krigsexe/Kage/internal/tools"

// State is the engine's observable state for one step.
type State string

const (
	// StateThinking is emitted before each backend inference call.
	StateThinking State = "thinking"
	// StateToolCall is emitted around tool execution, first without a
	// result to signal the call, then again carrying the result.
	StateToolCall State = "tool_call"
	// StateWaitingConfirmation suspends the run on a dangerous tool.
	// The caller must obtain a decision and invoke Confirm.
	StateWaitingConfirmation State = "waiting_confirmation"
	// StateDone carries the final response text.
	StateDone State = "done"
	// StateError carries a run-fatal failure (backend unreachable,
	// iteration budget exceeded, confirmation re-parse failure).
	StateError State = "error"
)

// Step is one observable unit of engine progress. Only the fields
// relevant to the state are populated. Steps are consumed by the
// caller for rendering and confirmation; they are never persisted.
type Step struct {
	State      State          `json:"state"`
	Thought    string         `json:"thought,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolArgs   map[string]any `json:"tool_args,omitempty"`
	ToolResult *tools.Result  `json:"tool_result,omitempty"`
	Response   string         `json:"response,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func thinkingStep() Step {
	return Step{State: StateThinking}
}

func toolCallStep(name string, args map[string]any, result *tools.Result) Step {
	return Step{State: StateToolCall, ToolName: name, ToolArgs: args, ToolResult: result}
}

func waitingStep(name string, args map[string]any) Step {
	return Step{State: StateWaitingConfirmation, ToolName: name, ToolArgs: args}
}

func doneStep(response string) Step {
	return Step{State: StateDone, Response: response}
}

func errorStep(msg string) Step {
	return Step{State: StateError, Error: msg}
}
