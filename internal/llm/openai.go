package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds OpenAI client settings.
type OpenAIConfig struct {
	APIKey        string
	Model         string // e.g., "gpt-4o-mini"
	Temperature   float64
	MaxTokens     int
	ContextWindow int
}

// OpenAIClient adapts the OpenAI chat API to the Client interface.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI-backed client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 128000
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: openai.NewClient(cfg.APIKey),
	}
}

// ContextWindow returns the configured context window.
func (c *OpenAIClient) ContextWindow() int {
	return c.cfg.ContextWindow
}

// Chat generates a response for a chat conversation.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: float32(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
	}
	for _, m := range messages {
		role := m.Role
		// OpenAI has no first-class tool-result role outside of function
		// calling; feed tool output back as a user turn.
		if role == "tool" {
			role = openai.ChatMessageRoleUser
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Complete generates a completion for a single prompt.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, []Message{{Role: openai.ChatMessageRoleUser, Content: prompt}})
}
