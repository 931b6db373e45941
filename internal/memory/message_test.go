package memory

import "testing"

func TestLogSystemFirst(t *testing.T) {
	log := NewLog("you are a test agent")

	log.AppendUser("hello")
	log.AppendAssistant("hi")

	sys, ok := log.System()
	if !ok {
		t.Fatal("expected leading system message")
	}
	if sys.Content != "you are a test agent" {
		t.Errorf("system content = %q", sys.Content)
	}
	if log.Len() != 3 {
		t.Errorf("Len = %d, want 3", log.Len())
	}
}

func TestLogNoSystem(t *testing.T) {
	log := NewLog("")
	log.AppendUser("hello")

	if _, ok := log.System(); ok {
		t.Error("log without system prompt should have no system message")
	}
}

func TestLogSetSystemAmends(t *testing.T) {
	log := NewLog("original")
	log.AppendUser("hello")

	log.SetSystem("amended")

	if log.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (amend, not append)", log.Len())
	}
	sys, _ := log.System()
	if sys.Content != "amended" {
		t.Errorf("system content = %q, want %q", sys.Content, "amended")
	}
}

func TestLogSetSystemPrepends(t *testing.T) {
	log := NewLog("")
	log.AppendUser("hello")

	log.SetSystem("late system")

	if log.Len() != 2 {
		t.Fatalf("Len = %d, want 2", log.Len())
	}
	if log.Messages()[0].Role != RoleSystem {
		t.Error("SetSystem should prepend a system message")
	}
	if log.Messages()[1].Role != RoleUser {
		t.Error("existing messages must keep their order")
	}
}

func TestLogLastAssistant(t *testing.T) {
	log := NewLog("sys")
	log.AppendUser("q1")
	log.AppendAssistant("a1")
	log.AppendToolResult("file_read", "contents", true)
	log.AppendAssistant("a2")
	log.AppendUser("q2")

	last, ok := log.LastAssistant()
	if !ok {
		t.Fatal("expected an assistant message")
	}
	if last.Content != "a2" {
		t.Errorf("LastAssistant = %q, want %q", last.Content, "a2")
	}
}

func TestLogToolResultMetadata(t *testing.T) {
	log := NewLog("")
	log.AppendToolResult("bash", "exit 1", false)

	m := log.Messages()[0]
	if m.Role != RoleTool {
		t.Errorf("role = %q, want %q", m.Role, RoleTool)
	}
	if m.Metadata["tool"] != "bash" {
		t.Errorf("tool metadata = %v", m.Metadata["tool"])
	}
	if m.Metadata["success"] != false {
		t.Errorf("success metadata = %v", m.Metadata["success"])
	}
}

func TestLogForLLM(t *testing.T) {
	log := NewLog("sys")
	log.AppendUser("hello")

	wire := log.ForLLM()
	if len(wire) != 2 {
		t.Fatalf("len = %d, want 2", len(wire))
	}
	if wire[0].Role != "system" || wire[1].Role != "user" {
		t.Errorf("roles = %q, %q", wire[0].Role, wire[1].Role)
	}
}
