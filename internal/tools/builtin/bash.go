package builtin

import (
	"context"
	"os/exec"
	"strings"

	"github.com/Krigsexe/Kage/internal/tools"
)

// deniedPatterns are command substrings blocked regardless of
// confirmation. Confirmation protects against unreviewed side effects;
// these protect against the irreversible ones.
var deniedPatterns = []string{
	"rm -rf /",
	"rm -rf ~",
	"mkfs",
	"dd if=",
	":(){ :|:& };:",
	"shutdown",
	"reboot",
	"> /dev/sd",
}

const maxCommandOutput = 16384

func bashTool(cfg Config) tools.Tool {
	denied := append([]string{}, deniedPatterns...)
	denied = append(denied, cfg.DeniedPatterns...)

	return &tools.Func{
		Def: tools.Definition{
			Name:        "bash",
			Description: "Run a shell command in the workspace and return combined output.",
			Category:    "system",
			Dangerous:   true,
			Parameters: []tools.Parameter{
				{Name: "command", Type: "string", Description: "The command to run.", Required: true},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			command := tools.StringArg(args, "command")
			for _, p := range denied {
				if strings.Contains(command, p) {
					return tools.Failf("denied", "command matches blocked pattern %q", p), nil
				}
			}

			ctx, cancel := context.WithTimeout(ctx, cfg.BashTimeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			cmd.Dir = cfg.Workspace
			out, err := cmd.CombinedOutput()

			output := truncateOutput(string(out))
			if ctx.Err() == context.DeadlineExceeded {
				return tools.Failf("timeout", "command exceeded %s\n%s", cfg.BashTimeout, output), nil
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

func truncateOutput(s string) string {
	if len(s) <= maxCommandOutput {
		return strings.TrimRight(s, "\n")
	}
	return s[:maxCommandOutput] + "\n[output truncated]"
}
