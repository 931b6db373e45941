package builtin

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Krigsexe/Kage/internal/tools"
)

// detectTestCommand picks a test runner from project markers.
func detectTestCommand(workspace string) []string {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(workspace, name))
		return err == nil
	}
	switch {
	case exists("go.mod"):
		return []string{"go", "test", "./..."}
	case exists("package.json"):
		return []string{"npm", "test"}
	case exists("pytest.ini"), exists("pyproject.toml"), exists("setup.py"):
		return []string{"python3", "-m", "pytest"}
	case exists("Makefile"):
		return []string{"make", "test"}
	}
	return nil
}

func testRunnerTool(cfg Config) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:        "test_runner",
			Description: "Run the project's test suite, autodetecting go test, npm test, pytest, or make test.",
			Category:    "system",
			Dangerous:   true,
			Parameters: []tools.Parameter{
				{Name: "target", Type: "string", Description: "Optional package, file, or test filter appended to the command."},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			command := detectTestCommand(cfg.Workspace)
			if command == nil {
				return tools.Fail("no_runner", "no recognized test setup (go.mod, package.json, pytest, Makefile)"), nil
			}
			if target := tools.StringArg(args, "target"); target != "" {
				command = append(command, target)
			}

			ctx, cancel := context.WithTimeout(ctx, cfg.CodeExecTimeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, command[0], command[1:]...)
			cmd.Dir = cfg.Workspace
			out, err := cmd.CombinedOutput()

			output := truncateOutput(string(out))
			if ctx.Err() == context.DeadlineExceeded {
				return tools.Failf("timeout", "tests exceeded %s\n%s", cfg.CodeExecTimeout, output), nil
			}
			if err != nil {
				// Failing tests are a result, not a dispatch fault.
				return tools.Failf("tests_failed", "%v\n%s", err, output), nil
			}
			return tools.Ok(output), nil
		},
	}
}
