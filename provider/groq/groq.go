package groq

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/newshub/models"
	"github.com/mohammad-safakhou/newshub/provider"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL   = "https://api.groq.com/openai/v1"
	DefaultModel     = "llama-3.3-70b-versatile"
	DefaultMaxTokens = 4096
)

// Client talks to Groq through its OpenAI-compatible chat completions API.
type Client struct {
	api       *openai.Client
	apiKey    string
	model     string
	maxTokens int
}

func New(apiKey, baseURL, model string, maxTokens int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	return &Client{api: openai.NewClientWithConfig(cfg), apiKey: apiKey, model: model, maxTokens: maxTokens}
}

func (c *Client) Name() string { return string(provider.Groq) }

// Complete sends conv. When tools is non-empty the model may answer with tool
// calls instead of text; tool_choice is left to the model.
func (c *Client) Complete(ctx context.Context, conv models.Conversation, tools []provider.Tool) (provider.Completion, error) {
	if c.apiKey == "" {
		return provider.Completion{}, fmt.Errorf("groq: %w", provider.ErrMissingAPIKey)
	}
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toMessages(conv),
		MaxTokens: c.maxTokens,
	}
	if len(tools) > 0 {
		req.Tools = toTools(tools)
		req.ToolChoice = "auto"
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return provider.Completion{}, fmt.Errorf("groq chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return provider.Completion{}, fmt.Errorf("groq: %w", provider.ErrEmptyResponse)
	}
	msg := resp.Choices[0].Message
	out := provider.Completion{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out, nil
}

func toMessages(conv models.Conversation) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(conv))
	for _, turn := range conv {
		m := openai.ChatCompletionMessage{
			Role:       string(turn.Role),
			Content:    turn.Content,
			ToolCallID: turn.ToolCallID,
			Name:       turn.Name,
		}
		for _, tc := range turn.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:       tc.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func toTools(tools []provider.Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
