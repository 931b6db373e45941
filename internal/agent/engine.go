package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Krigsexe/Kage/internal/llm"
	"github.com/Krigsexe/Kage/internal/memory"
	"github.com/Krigsexe/Kage/internal/tools"
)

// DefaultMaxIterations bounds the reason/act loop per run. Exceeding
// it yields an error step, not a crash.
const DefaultMaxIterations = 10

// Config holds engine tuning knobs. Passed explicitly so alternate
// sessions and tests can use different configurations concurrently.
type Config struct {
	MaxIterations int
}

func (c *Config) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
}

// Options carries the engine's optional collaborators.
type Options struct {
	// Session receives file-modification records from successful
	// mutating tool calls.
	Session *memory.Session
	// Persistent receives error records for cross-session recall.
	Persistent *memory.PersistentStore
}

// Engine drives the reason/act cycle: it submits the message log to
// the LLM backend, parses the response for an embedded tool
// invocation, routes to the dispatcher or to confirmation gating, and
// emits a sequence of observable steps.
//
// One engine owns one session's log; runs on a single engine are
// sequential. Independent engines may run in parallel with no shared
// mutable state beyond the tool registry, which is read-only after
// startup.
type Engine struct {
	llm        llm.Client
	dispatcher *tools.Dispatcher
	log        *memory.Log
	compactor  *memory.Compactor
	session    *memory.Session
	persistent *memory.PersistentStore
	cfg        Config
	logger     *slog.Logger
}

// NewEngine creates an engine over the given backend, dispatcher, and
// message log. The compactor may be nil to disable compaction.
func NewEngine(client llm.Client, dispatcher *tools.Dispatcher, log *memory.Log, compactor *memory.Compactor, cfg Config, opts Options, logger *slog.Logger) *Engine {
	cfg.applyDefaults()
	return &Engine{
		llm:        client,
		dispatcher: dispatcher,
		log:        log,
		compactor:  compactor,
		session:    opts.Session,
		persistent: opts.Persistent,
		cfg:        cfg,
		logger:     logger.With("component", "engine"),
	}
}

// Log returns the engine's message log.
func (e *Engine) Log() *memory.Log {
	return e.log
}

// Run processes one user input and returns the resulting step
// sequence. The channel is closed when the run reaches a terminal
// state (done, error) or suspends on waiting_confirmation.
func (e *Engine) Run(ctx context.Context, input string) <-chan Step {
	steps := make(chan Step, 8)
	go func() {
		defer close(steps)
		e.run(ctx, input, steps)
	}()
	return steps
}

// Confirm resumes a run suspended on a dangerous tool. Declined runs
// record the decline and finish; accepted runs re-parse the pending
// call from the last assistant message, dispatch it, and resume the
// iteration loop. The pending call is not cached separately; the log
// is the single source of truth.
func (e *Engine) Confirm(ctx context.Context, accepted bool) <-chan Step {
	steps := make(chan Step, 8)
	go func() {
		defer close(steps)
		e.confirm(ctx, accepted, steps)
	}()
	return steps
}

func (e *Engine) run(ctx context.Context, input string, steps chan<- Step) {
	// Empty input resumes after a confirmation; nothing to append.
	if input != "" {
		e.log.AppendUser(input)
	}
	e.maybeCompact(ctx)
	e.loop(ctx, steps)
}

func (e *Engine) confirm(ctx context.Context, accepted bool, steps chan<- Step) {
	last, ok := e.log.LastAssistant()
	if !ok {
		e.emit(ctx, steps, errorStep("no pending tool call to confirm"))
		return
	}
	call, parsed := ParseToolCall(last.Content)

	if !accepted {
		name := call.Tool
		if name == "" {
			name = "tool"
		}
		e.log.AppendToolResult(name, "[FAIL] declined: user declined execution", false)
		e.emit(ctx, steps, doneStep("Operation cancelled by user."))
		return
	}

	if !parsed {
		// Log left unchanged; the caller may retry or abandon.
		e.emit(ctx, steps, errorStep("pending tool call could not be re-parsed"))
		return
	}

	e.emit(ctx, steps, toolCallStep(call.Tool, call.Args, nil))
	result := e.dispatcher.Dispatch(ctx, call.Tool, call.Args)
	e.emit(ctx, steps, toolCallStep(call.Tool, call.Args, &result))
	e.log.AppendToolResult(call.Tool, result.LLMMessage(), result.Success)
	e.record(call, result)

	e.loop(ctx, steps)
}

// loop is the bounded reason/act cycle shared by run and confirm.
func (e *Engine) loop(ctx context.Context, steps chan<- Step) {
	for i := 0; i < e.cfg.MaxIterations; i++ {
		e.emit(ctx, steps, thinkingStep())

		reply, err := e.llm.Chat(ctx, e.log.ForLLM())
		if err != nil {
			e.recordError("backend failure: "+err.Error(), "")
			e.emit(ctx, steps, errorStep(fmt.Sprintf("backend: %v", err)))
			return
		}

		call, hasCall := ParseToolCall(reply)
		if !hasCall {
			// No tool invocation: the response is the final answer.
			e.log.AppendAssistant(reply)
			e.emit(ctx, steps, doneStep(reply))
			return
		}

		def, known := e.dispatcher.Lookup(call.Tool)
		if !known {
			// Fed back to the model so it can self-correct.
			e.log.AppendAssistant(reply)
			e.log.AppendToolResult(call.Tool, fmt.Sprintf(
				"[FAIL] unknown_tool: no tool named %q. Available tools: %s",
				call.Tool, strings.Join(e.dispatcher.Registry().Names(), ", ")), false)
			continue
		}

		if def.Dangerous {
			// Suspend without executing. The assistant message is
			// appended so Confirm can re-parse the pending call.
			e.log.AppendAssistant(reply)
			e.logger.Info("dangerous tool requires confirmation", "tool", call.Tool)
			e.emit(ctx, steps, waitingStep(call.Tool, call.Args))
			return
		}

		e.emit(ctx, steps, toolCallStep(call.Tool, call.Args, nil))
		result := e.dispatcher.Dispatch(ctx, call.Tool, call.Args)
		e.emit(ctx, steps, toolCallStep(call.Tool, call.Args, &result))

		e.log.AppendAssistant(reply)
		e.log.AppendToolResult(call.Tool, result.LLMMessage(), result.Success)
		e.record(call, result)
	}

	e.emit(ctx, steps, errorStep(fmt.Sprintf(
		"iteration budget exhausted after %d iterations", e.cfg.MaxIterations)))
}

// maybeCompact runs the compaction check before inference. Compaction
// failure is logged and the run continues with the uncompacted log.
func (e *Engine) maybeCompact(ctx context.Context) {
	if e.compactor == nil || !e.compactor.NeedsCompaction(e.log) {
		return
	}
	res, err := e.compactor.Compact(ctx, e.log)
	if err != nil {
		e.logger.Warn("compaction failed, continuing uncompacted", "error", err)
		return
	}
	if res.ArchivedCount > 0 && e.persistent != nil {
		var modified []string
		if e.session != nil {
			modified = e.session.ModifiedFiles
		}
		if err := e.persistent.SaveSessionSummary(res.Summary, modified); err != nil {
			e.logger.Warn("persist compaction summary", "error", err)
		}
	}
}

// record updates session and persistent memory from a tool outcome.
func (e *Engine) record(call ToolCall, result tools.Result) {
	if result.Success {
		if e.session != nil {
			if path, ok := result.Metadata["modified_path"].(string); ok && path != "" {
				e.session.RecordFileModification(path)
			}
		}
		return
	}
	path := tools.StringArg(call.Args, "path")
	e.recordError(fmt.Sprintf("tool %s: %s", call.Tool, result.Error), path)
}

func (e *Engine) recordError(errText, path string) {
	if e.session != nil {
		e.session.RecordError(errText, path)
	}
	if e.persistent != nil {
		if err := e.persistent.RecordError(errText, "", path); err != nil {
			e.logger.Warn("persist error record", "error", err)
		}
	}
}

// emit delivers a step unless the caller has gone away.
func (e *Engine) emit(ctx context.Context, steps chan<- Step, s Step) {
	select {
	case steps <- s:
	case <-ctx.Done():
	}
}
