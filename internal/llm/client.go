// Package llm provides LLM backend client implementations.
package llm

import "context"

// Message represents a chat message on the wire. Role is one of
// "system", "user", "assistant", or "tool".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the interface all LLM backends implement. Both calls are
// fallible: a backend failure is always surfaced as an error, never as
// silently empty text.
type Client interface {
	// Complete generates a completion for a single prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// Chat generates a response for a chat conversation.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ContextWindow returns the model's advertised context window in
	// tokens. The compactor derives its budget from this.
	ContextWindow() int
}
