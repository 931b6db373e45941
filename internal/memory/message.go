// Package memory provides the conversation log, context compaction,
// session tracking, and cross-session persistent storage.
package memory

import (
	"time"

	"github.com/Krigsexe/Kage/internal/llm"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in the conversation log.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Log is the ordered, append-only record of one session's conversation.
// Insertion order is significant: the log is the literal model input.
// A Log is owned by a single agent engine and is not safe for concurrent
// use.
type Log struct {
	messages []Message
}

// NewLog creates an empty log. If systemPrompt is non-empty it becomes
// the leading system message, which compaction never removes.
func NewLog(systemPrompt string) *Log {
	l := &Log{}
	if systemPrompt != "" {
		l.append(Message{Role: RoleSystem, Content: systemPrompt})
	}
	return l
}

func (l *Log) append(m Message) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	l.messages = append(l.messages, m)
}

// Append adds a message to the log.
func (l *Log) Append(m Message) {
	l.append(m)
}

// AppendUser adds a user message.
func (l *Log) AppendUser(content string) {
	l.append(Message{Role: RoleUser, Content: content})
}

// AppendAssistant adds an assistant message.
func (l *Log) AppendAssistant(content string) {
	l.append(Message{Role: RoleAssistant, Content: content})
}

// AppendToolResult adds a tool-result message tagged with the tool name
// and outcome.
func (l *Log) AppendToolResult(tool, content string, success bool) {
	l.append(Message{
		Role:    RoleTool,
		Content: content,
		Metadata: map[string]any{
			"tool":    tool,
			"success": success,
		},
	})
}

// Messages returns the log contents. The returned slice is shared with
// the log; callers must not mutate it.
func (l *Log) Messages() []Message {
	return l.messages
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	return len(l.messages)
}

// System returns the leading system message, if present.
func (l *Log) System() (Message, bool) {
	if len(l.messages) > 0 && l.messages[0].Role == RoleSystem {
		return l.messages[0], true
	}
	return Message{}, false
}

// SetSystem amends the leading system message content, or prepends one
// if the log has none. The system message is only ever amended, never
// discarded.
func (l *Log) SetSystem(content string) {
	if len(l.messages) > 0 && l.messages[0].Role == RoleSystem {
		l.messages[0].Content = content
		return
	}
	l.messages = append([]Message{{
		Role:      RoleSystem,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}}, l.messages...)
}

// LastAssistant returns the most recent assistant message.
func (l *Log) LastAssistant() (Message, bool) {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role == RoleAssistant {
			return l.messages[i], true
		}
	}
	return Message{}, false
}

// Replace swaps the entire log contents. Used only by compaction.
func (l *Log) Replace(messages []Message) {
	l.messages = messages
}

// ForLLM converts the log into wire-format messages for an LLM backend.
// Tool results keep their role; backends that lack a tool role remap it
// at their own boundary.
func (l *Log) ForLLM() []llm.Message {
	out := make([]llm.Message, len(l.messages))
	for i, m := range l.messages {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
