package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Krigsexe/Kage/internal/tools"
)

func fileReadTool(cfg Config) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:        "file_read",
			Description: "Read a file's contents. Paths are relative to the workspace.",
			Category:    "files",
			Parameters: []tools.Parameter{
				{Name: "path", Type: "string", Description: "File path to read.", Required: true},
			},
		},
		Fn: func(_ context.Context, args map[string]any) (tools.Result, error) {
			path, err := resolvePath(cfg.Workspace, tools.StringArg(args, "path"))
			if err != nil {
				return tools.Failf("invalid_path", "%v", err), nil
			}

			info, err := os.Stat(path)
			if err != nil {
				return tools.Failf("not_found", "%v", err), nil
			}
			if info.Size() > cfg.MaxFileSize {
				return tools.Failf("too_large", "%s is %d bytes (limit %d)", relPath(cfg.Workspace, path), info.Size(), cfg.MaxFileSize), nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return tools.Failf("read_error", "%v", err), nil
			}
			return tools.Ok(string(data)), nil
		},
	}
}

func fileWriteTool(cfg Config) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:        "file_write",
			Description: "Write content to a file, creating parent directories as needed. Overwrites existing content.",
			Category:    "files",
			Dangerous:   true,
			Parameters: []tools.Parameter{
				{Name: "path", Type: "string", Description: "File path to write.", Required: true},
				{Name: "content", Type: "string", Description: "Full file content.", Required: true},
			},
		},
		Fn: func(_ context.Context, args map[string]any) (tools.Result, error) {
			path, err := resolvePath(cfg.Workspace, tools.StringArg(args, "path"))
			if err != nil {
				return tools.Failf("invalid_path", "%v", err), nil
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return tools.Failf("write_error", "%v", err), nil
			}
			content := tools.StringArg(args, "content")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return tools.Failf("write_error", "%v", err), nil
			}

			rel := relPath(cfg.Workspace, path)
			return tools.Result{
				Success:  true,
				Output:   fmt.Sprintf("wrote %d bytes to %s", len(content), rel),
				Metadata: map[string]any{"modified_path": rel},
			}, nil
		},
	}
}

func fileEditTool(cfg Config) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:        "file_edit",
			Description: "Replace an exact text occurrence in a file. The old text must appear exactly once.",
			Category:    "files",
			Dangerous:   true,
			Parameters: []tools.Parameter{
				{Name: "path", Type: "string", Description: "File path to edit.", Required: true},
				{Name: "old", Type: "string", Description: "Exact text to replace.", Required: true},
				{Name: "new", Type: "string", Description: "Replacement text.", Required: true},
			},
		},
		Fn: func(_ context.Context, args map[string]any) (tools.Result, error) {
			path, err := resolvePath(cfg.Workspace, tools.StringArg(args, "path"))
			if err != nil {
				return tools.Failf("invalid_path", "%v", err), nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return tools.Failf("not_found", "%v", err), nil
			}

			old := tools.StringArg(args, "old")
			text := string(data)
			switch strings.Count(text, old) {
			case 0:
				return tools.Failf("no_match", "old text not found in %s", relPath(cfg.Workspace, path)), nil
			case 1:
				// unique, proceed
			default:
				return tools.Failf("ambiguous", "old text appears more than once in %s; provide more context", relPath(cfg.Workspace, path)), nil
			}

			updated := strings.Replace(text, old, tools.StringArg(args, "new"), 1)
			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return tools.Failf("write_error", "%v", err), nil
			}

			rel := relPath(cfg.Workspace, path)
			return tools.Result{
				Success:  true,
				Output:   "edited " + rel,
				Metadata: map[string]any{"modified_path": rel},
			}, nil
		},
	}
}

func dirListTool(cfg Config) tools.Tool {
	return &tools.Func{
		Def: tools.Definition{
			Name:        "dir_list",
			Description: "List a directory's entries. Directories are suffixed with '/'.",
			Category:    "files",
			Parameters: []tools.Parameter{
				{Name: "path", Type: "string", Description: "Directory to list.", Default: "."},
			},
		},
		Fn: func(_ context.Context, args map[string]any) (tools.Result, error) {
			path, err := resolvePath(cfg.Workspace, tools.StringArg(args, "path"))
			if err != nil {
				return tools.Failf("invalid_path", "%v", err), nil
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return tools.Failf("not_found", "%v", err), nil
			}

			names := make([]string, 0, len(entries))
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			sort.Strings(names)

			if len(names) == 0 {
				return tools.Ok("(empty directory)"), nil
			}
			return tools.Ok(strings.Join(names, "\n")), nil
		},
	}
}
