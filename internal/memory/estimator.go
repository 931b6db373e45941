package memory

import "strings"

// roleOverhead approximates the per-message token cost of role markers
// and message framing.
const roleOverhead = 4

// Estimator approximates token counts without a backend-specific
// tokenizer. The heuristic is ~4 characters per token, floored by the
// whitespace-separated word count so that short dense text (code,
// punctuation) is not underestimated.
type Estimator struct{}

// NewEstimator creates a token estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Count estimates the token count of text.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	byChars := len(text) / 4
	byWords := len(strings.Fields(text))
	if byWords > byChars {
		return byWords
	}
	if byChars == 0 {
		return 1
	}
	return byChars
}

// CountMessage estimates the token count of one message including role
// framing overhead.
func (e *Estimator) CountMessage(m Message) int {
	return e.Count(m.Content) + roleOverhead
}

// CountAll estimates the total token count of a message sequence.
func (e *Estimator) CountAll(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += e.CountMessage(m)
	}
	return total
}
