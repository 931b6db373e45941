package prompts

import (
	"fmt"
	"strings"
)

// systemTemplate is the agent's system prompt. Format verbs: tool
// manifest, project path, persistent context, knowledge context.
const systemTemplate = `You are KAGE, a coding assistant.

## Available Tools
%s

## CRITICAL RULES
1. TOOL CALL: Reply with ONLY this JSON, nothing else:
   {"tool": "name", "args": {...}}

2. AFTER "[OK] Tool executed": Give your FINAL ANSWER in plain text.
   DO NOT call another tool. DO NOT output JSON. Just answer the question.

3. Never guess file contents - read first.

## Project Context
%s

%s

%s
`

// SystemPrompt builds the agent's system prompt from the tool manifest,
// the project path, and optional persistent/knowledge context blocks.
func SystemPrompt(toolManifest, projectPath, persistentContext, knowledgeContext string) string {
	return fmt.Sprintf(systemTemplate,
		toolManifest,
		projectPath,
		strings.TrimSpace(persistentContext),
		strings.TrimSpace(knowledgeContext),
	)
}
