// Package builtin provides Kage's standard tool set: file operations,
// shell and code execution, git, test running, and CVE lookup.
package builtin

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Krigsexe/Kage/internal/tools"
)

// Config controls builtin tool behavior.
type Config struct {
	// Workspace is the root for all file and command operations. Paths
	// outside it are rejected.
	Workspace string
	// SandboxEnabled permits tools that declare RequiresSandbox.
	SandboxEnabled bool
	// BashTimeout bounds shell commands. Zero uses 30s.
	BashTimeout time.Duration
	// CodeExecTimeout bounds code execution. Zero uses 60s.
	CodeExecTimeout time.Duration
	// MaxFileSize caps file_read input in bytes. Zero uses 10 MB.
	MaxFileSize int64
	// DeniedPatterns extends the built-in bash denylist.
	DeniedPatterns []string
}

func (c *Config) applyDefaults() error {
	if c.Workspace == "" {
		return fmt.Errorf("builtin: workspace is required")
	}
	abs, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("builtin: resolve workspace: %w", err)
	}
	c.Workspace = abs
	if c.BashTimeout <= 0 {
		c.BashTimeout = 30 * time.Second
	}
	if c.CodeExecTimeout <= 0 {
		c.CodeExecTimeout = time.Minute
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 10 << 20
	}
	return nil
}

// RegisterAll registers every builtin tool on the registry.
func RegisterAll(reg *tools.Registry, cfg Config) error {
	if err := cfg.applyDefaults(); err != nil {
		return err
	}
	for _, t := range []tools.Tool{
		fileReadTool(cfg),
		fileWriteTool(cfg),
		fileEditTool(cfg),
		dirListTool(cfg),
		bashTool(cfg),
		gitTool(cfg),
		gitCommitTool(cfg),
		codeExecTool(cfg),
		testRunnerTool(cfg),
		cveCheckTool(),
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// resolvePath resolves p inside the workspace and rejects escapes.
func resolvePath(workspace, p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path is required")
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(workspace, p)
	}
	p = filepath.Clean(p)
	if p != workspace && !strings.HasPrefix(p, workspace+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the workspace", p)
	}
	return p, nil
}

// relPath renders p relative to the workspace for display.
func relPath(workspace, p string) string {
	if rel, err := filepath.Rel(workspace, p); err == nil {
		return rel
	}
	return p
}
