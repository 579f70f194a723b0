package provider

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/newshub/models"
)

// Client names a reasoning provider.
type Client string

const (
	Groq   Client = "groq"
	Gemini Client = "gemini"
)

var (
	// ErrMissingAPIKey is returned before any network call when a provider has no credential.
	ErrMissingAPIKey = errors.New("missing api key")
	// ErrEmptyResponse is returned when a provider answers without usable content.
	ErrEmptyResponse = errors.New("empty response")
)

// Tool describes a function the model may call. Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Completion is one model reply: either text, tool calls, or both.
type Completion struct {
	Content   string
	ToolCalls []models.ToolCall
}

// ToolCaller is a chat provider that supports tool calling.
type ToolCaller interface {
	Name() string
	Complete(ctx context.Context, conv models.Conversation, tools []Tool) (Completion, error)
}

// TextGenerator is a prompt-in, text-out provider.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
