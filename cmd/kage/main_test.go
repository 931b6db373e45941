package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunVersion(t *testing.T) {
	var out, errOut strings.Builder
	if err := run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"version"}); err != nil {
		t.Fatalf("run version: %v", err)
	}
	if !strings.Contains(out.String(), "Kage") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestRunUsage(t *testing.T) {
	var out, errOut strings.Builder
	if err := run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"-h"}); err != nil {
		t.Fatalf("run -h: %v", err)
	}
	for _, want := range []string{"chat", "serve", "index", "-config"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out, errOut strings.Builder
	err := run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err = %v, want unknown command", err)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	var out, errOut strings.Builder
	err := run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"-bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Fatalf("err = %v, want unknown flag", err)
	}
}

func TestRunInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	var out, errOut strings.Builder
	if err := run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"init", dir}); err != nil {
		t.Fatalf("run init: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "kage.yaml"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "provider: ollama") {
		t.Error("example config missing llm provider")
	}

	// Second init must refuse to overwrite.
	err = run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"init", dir})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("err = %v, want already exists", err)
	}
}

func TestRunAskRequiresQuestion(t *testing.T) {
	var out, errOut strings.Builder
	err := run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"ask"})
	if err == nil || !strings.Contains(err.Error(), "usage: kage ask") {
		t.Fatalf("err = %v, want ask usage error", err)
	}
}

func TestRunExplicitConfigMustExist(t *testing.T) {
	var out, errOut strings.Builder
	err := run(context.Background(), strings.NewReader(""), &out, &errOut,
		[]string{"-config", "/nonexistent/kage.yaml", "chat"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want config not found", err)
	}
}
