// Package prompts holds the prompt templates sent to LLM backends.
package prompts

import (
	"fmt"
	"strings"
)

// compactionTemplate is the prompt sent to an LLM to summarize a
// conversation segment during context compaction. The single format
// verb is the conversation text. The section structure is a convention
// enforced by instruction, not a parser-validated schema.
const compactionTemplate = `You are a context summarizer. Compress conversation history while preserving critical information.

Given the conversation below, create a concise summary capturing:
1. Key decisions made
2. Files modified or created
3. Errors encountered and their resolutions
4. Current task state
5. Any pending actions

Be factual. No interpretation. Use bullet points.

CONVERSATION:
%s

OUTPUT FORMAT:
## Context Summary
- [key point 1]
- [key point 2]

## Files Touched
- path/to/file: [what was done]

## Current State
[brief description]

## Pending
- [any unfinished tasks]
`

// Turn is one role-tagged conversation entry for rendering.
type Turn struct {
	Role    string
	Content string
}

// RenderConversation formats turns as role-tagged text, truncating each
// turn's contribution at charCap to bound summarizer input size.
func RenderConversation(turns []Turn, charCap int) string {
	parts := make([]string, len(turns))
	for i, t := range turns {
		content := t.Content
		if charCap > 0 && len(content) > charCap {
			content = content[:charCap] + "..."
		}
		parts[i] = fmt.Sprintf("[%s]: %s", strings.ToUpper(t.Role), content)
	}
	return strings.Join(parts, "\n\n")
}

// CompactionPrompt returns the fully interpolated compaction prompt for
// the given rendered conversation text.
func CompactionPrompt(conversation string) string {
	return fmt.Sprintf(compactionTemplate, conversation)
}
