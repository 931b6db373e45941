package tools

import (
	"context"
	"strings"
	"testing"
)

func namedTool(name, category string, dangerous bool) Tool {
	return &Func{
		Def: Definition{
			Name:        name,
			Description: "a " + name + " tool",
			Category:    category,
			Dangerous:   dangerous,
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "target path", Required: true},
			},
		},
		Fn: func(context.Context, map[string]any) (Result, error) {
			return Ok(""), nil
		},
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(namedTool("file_read", "files", false)); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := reg.Register(namedTool("file_read", "files", false)); err == nil {
		t.Fatal("duplicate name must be rejected")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		reg.MustRegister(namedTool(n, "", false))
	}

	names := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("Names = %v, want %v", names, want)
		}
	}
}

func TestRegistryManifest(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(namedTool("file_read", "files", false))
	reg.MustRegister(namedTool("bash", "system", true))

	m := reg.Manifest()
	if !strings.Contains(m, "### files") || !strings.Contains(m, "### system") {
		t.Errorf("manifest missing category headers:\n%s", m)
	}
	if !strings.Contains(m, "file_read(path*: string)") {
		t.Errorf("manifest missing parameter rendering:\n%s", m)
	}
	if !strings.Contains(m, "bash(path*: string) [dangerous]") {
		t.Errorf("manifest missing dangerous flag:\n%s", m)
	}
}

func TestDefinitionJSONSchema(t *testing.T) {
	def := Definition{
		Name: "git",
		Parameters: []Parameter{
			{Name: "operation", Type: "string", Required: true, Enum: []any{"status", "diff"}},
			{Name: "limit", Type: "integer", Default: float64(10)},
		},
	}

	schema := def.JSONSchema()
	if schema["type"] != "object" {
		t.Errorf("type = %v", schema["type"])
	}
	required, _ := schema["required"].([]string)
	if len(required) != 1 || required[0] != "operation" {
		t.Errorf("required = %v", required)
	}
	props := schema["properties"].(map[string]any)
	op := props["operation"].(map[string]any)
	if len(op["enum"].([]any)) != 2 {
		t.Errorf("enum = %v", op["enum"])
	}
}

func TestValidateArgsEnum(t *testing.T) {
	def := Definition{
		Name: "git",
		Parameters: []Parameter{
			{Name: "operation", Type: "string", Required: true, Enum: []any{"status", "diff"}},
		},
	}

	if err := def.ValidateArgs(map[string]any{"operation": "status"}); err != nil {
		t.Errorf("valid enum value rejected: %v", err)
	}
	if err := def.ValidateArgs(map[string]any{"operation": "push"}); err == nil {
		t.Error("out-of-enum value accepted")
	}
}

func TestValidateArgsNilMap(t *testing.T) {
	def := Definition{Name: "noargs", Parameters: nil}
	if err := def.ValidateArgs(nil); err != nil {
		t.Errorf("nil args for parameterless tool rejected: %v", err)
	}
}

func TestResultLLMMessage(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{"success", Ok("file contents"), "[OK] file contents"},
		{"success empty", Ok(""), "[OK] (no output)"},
		{"failure", Fail("invalid_args", "message is required"), "[FAIL] invalid_args: message is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.LLMMessage(); got != tt.want {
				t.Errorf("LLMMessage = %q, want %q", got, tt.want)
			}
		})
	}
}
