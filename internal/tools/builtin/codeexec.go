package builtin

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Krigsexe/Kage/internal/tools"
)

// interpreters maps supported languages to their run commands and
// source file extensions.
var interpreters = map[string]struct {
	cmd []string
	ext string
}{
	"python": {cmd: []string{"python3"}, ext: ".py"},
	"node":   {cmd: []string{"node"}, ext: ".js"},
	"go":     {cmd: []string{"go", "run"}, ext: ".go"},
	"sh":     {cmd: []string{"sh"}, ext: ".sh"},
}

func codeExecTool(cfg Config) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:            "code_exec",
			Description:     "Execute a code snippet in an isolated scratch directory.",
			Category:        "system",
			Dangerous:       true,
			RequiresSandbox: true,
			Parameters: []tools.Parameter{
				{
					Name: "language", Type: "string", Required: true,
					Description: "Interpreter to use.",
					Enum:        []any{"python", "node", "go", "sh"},
				},
				{Name: "code", Type: "string", Description: "Source code to run.", Required: true},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			if !cfg.SandboxEnabled {
				return tools.Fail("sandbox_required", "code_exec is disabled: no sandbox configured"), nil
			}

			lang := tools.StringArg(args, "language")
			interp, ok := interpreters[lang]
			if !ok {
				return tools.Failf("unsupported", "no interpreter for %q", lang), nil
			}

			scratch, err := os.MkdirTemp("", "kage-exec-")
			if err != nil {
				return tools.Failf("exec_error", "%v", err), nil
			}
			defer os.RemoveAll(scratch)

			src := filepath.Join(scratch, "snippet"+interp.ext)
			if err := os.WriteFile(src, []byte(tools.StringArg(args, "code")), 0o644); err != nil {
				return tools.Failf("exec_error", "%v", err), nil
			}

			ctx, cancel := context.WithTimeout(ctx, cfg.CodeExecTimeout)
			defer cancel()

			cmdArgs := append(interp.cmd[1:], src)
			cmd := exec.CommandContext(ctx, interp.cmd[0], cmdArgs...)
			cmd.Dir = scratch
			out, err := cmd.CombinedOutput()

			output := truncateOutput(string(out))
			if ctx.Err() == context.DeadlineExceeded {
				return tools.Failf("timeout", "execution exceeded %s\n%s", cfg.CodeExecTimeout, output), nil
			}
			if err != nil {
				return tools.Failf("exit_error", "%v\n%s", err, output), nil
			}
			if output == "" {
				output = "(no output)"
			}
			return tools.Ok(output), nil
		},
	}
}
