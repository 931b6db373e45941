package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Krigsexe/Kage/internal/llm"
)

// stubLLM is a canned backend for compaction tests.
type stubLLM struct {
	window     int
	summary    string
	err        error
	completes  int
	lastPrompt string
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.completes++
	s.lastPrompt = prompt
	return s.summary, s.err
}

func (s *stubLLM) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return "", errors.New("not used")
}

func (s *stubLLM) ContextWindow() int { return s.window }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fillLog builds a log whose estimated size is roughly 85% of a
// 1000-token window: one system message plus nine exchanges of
// 400-char content (100 tokens each, plus role overhead).
func fillLog() *Log {
	log := NewLog(strings.Repeat("s", 400))
	for i := 0; i < 9; i++ {
		content := strings.Repeat(string(rune('a'+i)), 400)
		if i%2 == 0 {
			log.AppendUser(content)
		} else {
			log.AppendAssistant(content)
		}
	}
	return log
}

func TestNeedsCompaction(t *testing.T) {
	backend := &stubLLM{window: 1000}
	c := NewCompactor(backend, CompactionConfig{Threshold: 0.8, KeepRecent: 6}, discardLogger())

	log := fillLog() // ~1040 tokens against an 800-token threshold
	if !c.NeedsCompaction(log) {
		t.Fatal("log above threshold should need compaction")
	}

	small := NewLog("sys")
	small.AppendUser("hello")
	if c.NeedsCompaction(small) {
		t.Error("small log should not need compaction")
	}
}

func TestNeedsCompactionMonotonic(t *testing.T) {
	backend := &stubLLM{window: 1000}
	c := NewCompactor(backend, DefaultCompactionConfig(), discardLogger())

	log := NewLog("sys")
	needed := false
	for i := 0; i < 40; i++ {
		log.AppendUser(strings.Repeat("a", 400))
		if c.NeedsCompaction(log) {
			needed = true
		} else if needed {
			t.Fatalf("needs_compaction flipped back to false after %d appends", i+1)
		}
	}
	if !needed {
		t.Fatal("log never crossed the threshold")
	}
}

func TestCompact(t *testing.T) {
	backend := &stubLLM{window: 1000, summary: "did three things"}
	c := NewCompactor(backend, CompactionConfig{Threshold: 0.8, KeepRecent: 6}, discardLogger())

	log := fillLog()
	res, err := c.Compact(context.Background(), log)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}

	// 1 system + 1 summary + 6 preserved = 8.
	if log.Len() != 8 {
		t.Errorf("log length = %d, want 8", log.Len())
	}
	if res.ArchivedCount != 3 {
		t.Errorf("ArchivedCount = %d, want 3", res.ArchivedCount)
	}
	if res.TokensAfter >= res.TokensBefore {
		t.Errorf("tokens did not shrink: before=%d after=%d", res.TokensBefore, res.TokensAfter)
	}

	msgs := log.Messages()
	if msgs[0].Role != RoleSystem || !strings.HasPrefix(msgs[0].Content, "s") {
		t.Error("original system message must be preserved first")
	}
	sum := msgs[1]
	if sum.Role != RoleSystem {
		t.Errorf("summary role = %q, want system", sum.Role)
	}
	if !strings.HasPrefix(sum.Content, "[COMPACTED CONTEXT]\n") {
		t.Errorf("summary content = %q, missing marker prefix", sum.Content)
	}
	if sum.Metadata["compacted"] != true || sum.Metadata["archived_count"] != 3 {
		t.Errorf("summary metadata = %v", sum.Metadata)
	}
	if backend.lastPrompt == "" || !strings.Contains(backend.lastPrompt, "[USER]") {
		t.Error("summarizer prompt should contain role-tagged conversation")
	}
}

func TestCompactIdempotent(t *testing.T) {
	backend := &stubLLM{window: 1000, summary: "summary"}
	c := NewCompactor(backend, CompactionConfig{Threshold: 0.8, KeepRecent: 6}, discardLogger())

	log := fillLog()
	if _, err := c.Compact(context.Background(), log); err != nil {
		t.Fatalf("first Compact: %v", err)
	}
	lenAfter := log.Len()

	res, err := c.Compact(context.Background(), log)
	if err != nil {
		t.Fatalf("second Compact: %v", err)
	}
	if res.ArchivedCount != 0 {
		t.Errorf("second compact archived %d messages, want 0", res.ArchivedCount)
	}
	if log.Len() != lenAfter {
		t.Errorf("second compact changed log length: %d -> %d", lenAfter, log.Len())
	}
	if backend.completes != 1 {
		t.Errorf("summarizer called %d times, want 1", backend.completes)
	}
}

func TestCompactShortLogNoOp(t *testing.T) {
	backend := &stubLLM{window: 1000, summary: "summary"}
	c := NewCompactor(backend, CompactionConfig{Threshold: 0.8, KeepRecent: 6}, discardLogger())

	log := NewLog("sys")
	log.AppendUser("one")
	log.AppendAssistant("two")

	res, err := c.Compact(context.Background(), log)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if res.ArchivedCount != 0 {
		t.Errorf("ArchivedCount = %d, want 0", res.ArchivedCount)
	}
	if log.Len() != 3 {
		t.Errorf("log length = %d, want 3 (unchanged)", log.Len())
	}
}

func TestCompactNoSystemMessage(t *testing.T) {
	backend := &stubLLM{window: 1000, summary: "summary"}
	c := NewCompactor(backend, CompactionConfig{Threshold: 0.8, KeepRecent: 2}, discardLogger())

	log := NewLog("")
	for i := 0; i < 5; i++ {
		log.AppendUser(fmt.Sprintf("message %d", i))
	}

	res, err := c.Compact(context.Background(), log)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if res.ArchivedCount != 3 {
		t.Errorf("ArchivedCount = %d, want 3", res.ArchivedCount)
	}
	// 1 summary + 2 preserved.
	if log.Len() != 3 {
		t.Errorf("log length = %d, want 3", log.Len())
	}
	if log.Messages()[0].Role != RoleSystem {
		t.Error("summary message should lead the compacted log")
	}
}

func TestCompactSummarizerFailure(t *testing.T) {
	backend := &stubLLM{window: 1000, err: errors.New("backend down")}
	c := NewCompactor(backend, CompactionConfig{Threshold: 0.8, KeepRecent: 6}, discardLogger())

	log := fillLog()
	lenBefore := log.Len()

	if _, err := c.Compact(context.Background(), log); err == nil {
		t.Fatal("expected error when summarizer fails")
	}
	if log.Len() != lenBefore {
		t.Errorf("failed compaction mutated the log: %d -> %d", lenBefore, log.Len())
	}
}
