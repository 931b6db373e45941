package agent

import (
	"encoding/json"
	"strings"
)

// ToolCall is a structured tool invocation extracted from model text.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// ParseToolCall extracts a tool invocation from a model response. The
// preferred encoding is a single fenced ```json block; the fallback is
// the first-`{` to last-`}` brace span in the text. Any parse failure
// means the response is final text, not an error: models are
// unpredictable and a missed call is recoverable, a crashed run is not.
func ParseToolCall(text string) (ToolCall, bool) {
	if block, ok := fencedJSON(text); ok {
		if call, ok := decodeCall(block); ok {
			return call, true
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ToolCall{}, false
	}
	return decodeCall(text[start : end+1])
}

// fencedJSON returns the contents of the first ```json fenced block.
func fencedJSON(text string) (string, bool) {
	const fence = "```json"
	start := strings.Index(text, fence)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func decodeCall(raw string) (ToolCall, bool) {
	var call ToolCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		return ToolCall{}, false
	}
	if call.Tool == "" {
		return ToolCall{}, false
	}
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	return call, true
}
