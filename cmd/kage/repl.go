package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Krigsexe/Kage/internal/agent"
	"github.com/Krigsexe/Kage/internal/buildinfo"
	"github.com/Krigsexe/Kage/internal/memory"
)

// runChat drives the interactive session: read a line, run the engine,
// render steps, and handle confirmation prompts for dangerous tools.
// One engine lives for the whole session so conversation context
// carries across turns.
func runChat(ctx context.Context, rt *runtime, stdin io.Reader, stdout io.Writer) error {
	engine, log, session := rt.newEngine()
	defer saveSession(rt, session)

	fmt.Fprintf(stdout, "%s\nworkspace: %s\ntype /help for commands\n\n", buildinfo.String(), rt.workspace)

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(stdout, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit := rt.slashCommand(ctx, stdout, log, input); quit {
				return nil
			}
			continue
		}

		rt.refreshKnowledge(ctx, log, input)
		if err := renderRun(ctx, engine, scanner, stdout, engine.Run(ctx, input)); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// renderRun consumes a step channel, printing each step. When the
// engine parks on a dangerous tool it prompts for confirmation and
// resumes with the user's decision, repeating until the run finishes.
func renderRun(ctx context.Context, engine *agent.Engine, scanner *bufio.Scanner, stdout io.Writer, steps <-chan agent.Step) error {
	for {
		parked := false
		for step := range steps {
			switch step.State {
			case agent.StateThinking:
				fmt.Fprintln(stdout, "... thinking")
			case agent.StateToolCall:
				if step.ToolResult == nil {
					fmt.Fprintf(stdout, "[tool] %s %s\n", step.ToolName, compactArgs(step.ToolArgs))
				} else if !step.ToolResult.Success {
					fmt.Fprintf(stdout, "[tool] %s failed: %s\n", step.ToolName, step.ToolResult.Error)
				}
			case agent.StateWaitingConfirmation:
				fmt.Fprintf(stdout, "[confirm] %s %s\n", step.ToolName, compactArgs(step.ToolArgs))
				parked = true
			case agent.StateDone:
				fmt.Fprintf(stdout, "\n%s\n\n", step.Response)
			case agent.StateError:
				fmt.Fprintf(stdout, "error: %s\n\n", step.Error)
			}
		}
		if !parked {
			return nil
		}

		fmt.Fprint(stdout, "allow? [y/N] ")
		accepted := false
		if scanner.Scan() {
			answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
			accepted = answer == "y" || answer == "yes"
		}
		steps = engine.Confirm(ctx, accepted)
	}
}

// compactArgs renders tool arguments on one line, truncating long
// values so commands stay readable.
func compactArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for k, v := range args {
		s := fmt.Sprintf("%v", v)
		if len(s) > 60 {
			s = s[:57] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%q", k, s))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// slashCommand handles REPL meta commands. Returns true to quit.
func (rt *runtime) slashCommand(ctx context.Context, stdout io.Writer, log *memory.Log, input string) bool {
	cmd, rest, _ := strings.Cut(input, " ")
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(stdout, "  /status       Show session status")
		fmt.Fprintln(stdout, "  /tools        List available tools")
		fmt.Fprintln(stdout, "  /index [dir]  Index a project into the knowledge base")
		fmt.Fprintln(stdout, "  /quit         Exit")
	case "/status":
		est := memory.NewEstimator()
		tokens := est.CountAll(log.Messages())
		fmt.Fprintf(stdout, "model: %s  context: %d tokens used of %d\n",
			rt.cfg.LLM.Model, tokens, rt.client.ContextWindow())
		fmt.Fprintf(stdout, "messages: %d  workspace: %s\n", log.Len(), rt.workspace)
		if rt.knowledge != nil {
			if n, err := rt.knowledge.Count(); err == nil {
				fmt.Fprintf(stdout, "knowledge: %d chunks indexed\n", n)
			}
		}
	case "/tools":
		fmt.Fprintln(stdout, rt.registry.Manifest())
	case "/index":
		if err := runIndex(ctx, rt, stdout, strings.TrimSpace(rest)); err != nil {
			fmt.Fprintf(stdout, "index failed: %v\n", err)
		}
	default:
		fmt.Fprintf(stdout, "unknown command %s (try /help)\n", cmd)
	}
	return false
}

// saveSession writes the session record under the data directory so
// future sessions can pick up where this one left off.
func saveSession(rt *runtime, session *memory.Session) {
	if len(session.ModifiedFiles) == 0 && len(session.Errors) == 0 && len(session.Decisions) == 0 {
		return
	}
	dir := filepath.Join(rt.cfg.DataDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		rt.logger.Warn("session save failed", "error", err)
		return
	}
	name := session.StartedAt.Format("20060102-150405") + ".json"
	if err := session.Save(filepath.Join(dir, name)); err != nil {
		rt.logger.Warn("session save failed", "error", err)
	}
}
