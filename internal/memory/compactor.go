package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Krigsexe/Kage/internal/llm"
	"github.com/Krigsexe/Kage/internal/prompts"
)

// CompactionConfig controls compaction behavior.
type CompactionConfig struct {
	// Threshold is the fraction of the context window at which
	// compaction triggers (e.g., 0.8 = compact at 80% full).
	Threshold float64
	// KeepRecent is the number of trailing messages always preserved.
	KeepRecent int
	// MessageCharCap truncates each summarized message's contribution
	// to bound the summarizer's input size.
	MessageCharCap int
}

// DefaultCompactionConfig returns sensible defaults.
func DefaultCompactionConfig() CompactionConfig {
	return CompactionConfig{
		Threshold:      0.8,
		KeepRecent:     6, // the last three user/assistant exchanges
		MessageCharCap: 500,
	}
}

func (c *CompactionConfig) applyDefaults() {
	d := DefaultCompactionConfig()
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = d.Threshold
	}
	if c.KeepRecent <= 0 {
		c.KeepRecent = d.KeepRecent
	}
	if c.MessageCharCap <= 0 {
		c.MessageCharCap = d.MessageCharCap
	}
}

// CompactionResult reports one compaction event.
type CompactionResult struct {
	Messages      []Message // the new log contents
	Summary       string    // generated summary text
	ArchivedCount int       // messages removed
	TokensBefore  int
	TokensAfter   int
}

// Compactor keeps a conversation log under a token budget derived from
// the backend's context window and a configured threshold fraction.
type Compactor struct {
	llm    llm.Client
	cfg    CompactionConfig
	est    *Estimator
	logger *slog.Logger
}

// NewCompactor creates a compactor bound to an LLM backend, which is
// used both for the context window size and for summary generation.
func NewCompactor(client llm.Client, cfg CompactionConfig, logger *slog.Logger) *Compactor {
	cfg.applyDefaults()
	return &Compactor{
		llm:    client,
		cfg:    cfg,
		est:    NewEstimator(),
		logger: logger.With("component", "compactor"),
	}
}

// threshold returns the token count at which compaction triggers.
func (c *Compactor) threshold() int {
	return int(float64(c.llm.ContextWindow()) * c.cfg.Threshold)
}

// NeedsCompaction reports whether the log's estimated token count has
// reached the compaction threshold.
func (c *Compactor) NeedsCompaction(log *Log) bool {
	return c.est.CountAll(log.Messages()) >= c.threshold()
}

// Compact summarizes the middle segment of the log, preserving the
// leading system message (if any) and the trailing KeepRecent messages.
// If the middle segment is empty, compaction is a no-op that returns
// the log unchanged with ArchivedCount 0, so invoking Compact twice in
// a row archives nothing on the second call. Compaction never
// removes the system message or any preserved suffix message, even if
// the budget is still exceeded afterwards; it does not recurse.
//
// On success, the log is replaced in place and the result reports the
// token counts before and after.
func (c *Compactor) Compact(ctx context.Context, log *Log) (*CompactionResult, error) {
	messages := log.Messages()
	tokensBefore := c.est.CountAll(messages)

	var head []Message
	rest := messages
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		head = messages[:1]
		rest = messages[1:]
	}

	var middle, tail []Message
	if len(rest) > c.cfg.KeepRecent {
		middle = rest[:len(rest)-c.cfg.KeepRecent]
		tail = rest[len(rest)-c.cfg.KeepRecent:]
	} else {
		tail = rest
	}

	if len(middle) == 0 {
		return &CompactionResult{
			Messages:      messages,
			ArchivedCount: 0,
			TokensBefore:  tokensBefore,
			TokensAfter:   tokensBefore,
		}, nil
	}

	summary, err := c.summarize(ctx, middle)
	if err != nil {
		return nil, fmt.Errorf("compaction summary: %w", err)
	}

	compacted := make([]Message, 0, len(head)+1+len(tail))
	compacted = append(compacted, head...)
	compacted = append(compacted, Message{
		Role:    RoleSystem,
		Content: "[COMPACTED CONTEXT]\n" + summary,
		Metadata: map[string]any{
			"compacted":      true,
			"archived_count": len(middle),
		},
	})
	compacted = append(compacted, tail...)

	log.Replace(compacted)
	tokensAfter := c.est.CountAll(compacted)

	c.logger.Info("context compacted",
		"archived", len(middle),
		"tokens_before", tokensBefore,
		"tokens_after", tokensAfter,
	)

	return &CompactionResult{
		Messages:      compacted,
		Summary:       summary,
		ArchivedCount: len(middle),
		TokensBefore:  tokensBefore,
		TokensAfter:   tokensAfter,
	}, nil
}

// summarize renders the candidate segment as role-tagged text and asks
// the backend for a structured summary.
func (c *Compactor) summarize(ctx context.Context, segment []Message) (string, error) {
	conversation := prompts.RenderConversation(roleContents(segment), c.cfg.MessageCharCap)
	return c.llm.Complete(ctx, prompts.CompactionPrompt(conversation))
}

func roleContents(messages []Message) []prompts.Turn {
	turns := make([]prompts.Turn, len(messages))
	for i, m := range messages {
		turns[i] = prompts.Turn{Role: m.Role, Content: m.Content}
	}
	return turns
}
