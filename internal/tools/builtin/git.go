package builtin

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Krigsexe/Kage/internal/tools"
)

// gitTool covers read-only repository inspection. Mutating operations
// live in git_commit, which is confirmation-gated.
func gitTool(cfg Config) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:        "git",
			Description: "Inspect the workspace git repository: status, diff, log, show, branch.",
			Category:    "git",
			Parameters: []tools.Parameter{
				{
					Name: "operation", Type: "string", Required: true,
					Description: "The read-only operation to run.",
					Enum:        []any{"status", "diff", "log", "show", "branch"},
				},
				{Name: "args", Type: "string", Description: "Extra arguments (e.g., a path for diff, a ref for show)."},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			op := tools.StringArg(args, "operation")
			gitArgs := []string{op}
			switch op {
			case "log":
				gitArgs = append(gitArgs, "--oneline", "-20")
			case "status":
				gitArgs = append(gitArgs, "--short", "--branch")
			}
			if extra := tools.StringArg(args, "args"); extra != "" {
				gitArgs = append(gitArgs, extra)
			}
			return runGit(ctx, cfg.Workspace, gitArgs...)
		},
	}
}

// gitCommitTool stages and commits, gated behind confirmation.
func gitCommitTool(cfg Config) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:        "git_commit",
			Description: "Stage the given paths and create a commit.",
			Category:    "git",
			Dangerous:   true,
			Parameters: []tools.Parameter{
				{Name: "message", Type: "string", Description: "Commit message.", Required: true},
				{Name: "paths", Type: "string", Description: "Paths to stage, space separated.", Default: "."},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			addArgs := append([]string{"add", "--"}, strings.Fields(tools.StringArg(args, "paths"))...)
			if res, err := runGit(ctx, cfg.Workspace, addArgs...); err != nil || !res.Success {
				return res, err
			}
			return runGit(ctx, cfg.Workspace, "commit", "-m", tools.StringArg(args, "message"))
		},
	}
}

func runGit(ctx context.Context, workspace string, args ...string) (tools.Result, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", workspace}, args...)...)
	out, err := cmd.CombinedOutput()
	output := truncateOutput(string(out))
	if err != nil {
		return tools.Failf("git_error", "git %s: %v\n%s", args[0], err, output), nil
	}
	if output == "" {
		output = fmt.Sprintf("git %s: ok", args[0])
	}
	return tools.Ok(output), nil
}
