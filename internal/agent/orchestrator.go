package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newshub/internal/runtime"
	"github.com/mohammad-safakhou/newshub/models"
	"github.com/mohammad-safakhou/newshub/provider"
)

const (
	// ToolName is the single function offered to the primary provider.
	ToolName = "search_public_security_news"
	// DegradedTag prefixes every answer produced by the secondary provider.
	DegradedTag = "[Fallback - Gemini] "
	// FailureMessage is returned when neither provider produced an answer.
	FailureMessage = "Error: both reasoning providers (Groq and Gemini) failed."

	DefaultTimeout = 60 * time.Second
)

const systemInstruction = `You are a public security research agent for the Distrito Federal (Brasília, Brazil).
Use the search function to find real, recent facts before answering.
Always answer in Brazilian Portuguese, as bullet points, citing the source links.
When you find relevant news, suggest that it be saved to the database.`

const contingencyInstruction = `You are a public security research agent for the Distrito Federal (Brasília, Brazil).
The main system failed and you are operating in contingency mode, without search results.

User question: %s

No additional context is available.

Answer in Brazilian Portuguese, concisely and usefully.`

var searchTool = provider.Tool{
	Name:        ToolName,
	Description: "Search recent public security and police news in the Distrito Federal",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search terms, e.g. 'operação policial' or 'crimes'",
			},
		},
		"required": []string{"query"},
	},
}

// Searcher renders live search results as prompt text.
type Searcher interface {
	SearchText(ctx context.Context, query string) string
}

// Answer is the outcome of one analysis request.
type Answer struct {
	Text     string
	Provider string
	// Degraded is set when the primary failed, including the terminal failure.
	Degraded bool
	// ToolUsed reports whether the search tool ran for this request.
	ToolUsed bool
	// ContextDiscarded is set when tool output gathered by the primary was
	// not forwarded to the secondary.
	ContextDiscarded bool
}

type Options struct {
	Primary   provider.ToolCaller
	Secondary provider.TextGenerator
	Searcher  Searcher
	// Timeout bounds each individual provider call.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *runtime.Metrics
}

// Orchestrator answers analysis requests with a primary tool-calling provider,
// falling back to a plain text provider and finally to FailureMessage.
type Orchestrator struct {
	primary   provider.ToolCaller
	secondary provider.TextGenerator
	searcher  Searcher
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *runtime.Metrics
}

func New(opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		primary:   opts.Primary,
		secondary: opts.Secondary,
		searcher:  opts.Searcher,
		timeout:   opts.Timeout,
		logger:    opts.Logger.With("component", "agent"),
		metrics:   opts.Metrics,
	}
}

// Answer never fails: provider errors degrade the answer instead.
func (o *Orchestrator) Answer(ctx context.Context, query string) Answer {
	query = strings.TrimSpace(query)

	text, toolUsed, err := o.askPrimary(ctx, query)
	if err == nil {
		o.metrics.Reasoning("primary")
		return Answer{Text: text, Provider: o.primary.Name(), ToolUsed: toolUsed}
	}
	o.logger.Warn("primary reasoning provider failed, switching to fallback", "error", err, "tool_used", toolUsed)

	text, err = o.askSecondary(ctx, query)
	if err != nil {
		o.logger.Error("secondary reasoning provider failed", "error", err)
		o.metrics.Reasoning("failed")
		return Answer{Text: FailureMessage, Degraded: true, ToolUsed: toolUsed, ContextDiscarded: toolUsed}
	}
	o.metrics.Reasoning("secondary")
	return Answer{
		Text:             DegradedTag + text,
		Provider:         o.secondary.Name(),
		Degraded:         true,
		ToolUsed:         toolUsed,
		ContextDiscarded: toolUsed,
	}
}

// askPrimary runs at most two completions: one offering the search tool and,
// if the model called it, one more without tools over the tool results.
func (o *Orchestrator) askPrimary(ctx context.Context, query string) (string, bool, error) {
	if o.primary == nil {
		return "", false, provider.ErrMissingAPIKey
	}
	conv := models.Conversation{
		{Role: models.RoleSystem, Content: systemInstruction},
		{Role: models.RoleUser, Content: query},
	}
	first, err := o.complete(ctx, conv, []provider.Tool{searchTool})
	if err != nil {
		return "", false, err
	}
	if len(first.ToolCalls) == 0 {
		return nonEmpty(first.Content, false)
	}

	conv = conv.Append(models.ConversationTurn{Role: models.RoleAssistant, Content: first.Content, ToolCalls: first.ToolCalls})
	toolUsed := false
	for _, call := range first.ToolCalls {
		result, ran, err := o.runTool(ctx, call, query)
		if err != nil {
			return "", toolUsed, err
		}
		toolUsed = toolUsed || ran
		conv = conv.Append(models.ConversationTurn{
			Role:       models.RoleTool,
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    result,
		})
	}

	final, err := o.complete(ctx, conv, nil)
	if err != nil {
		return "", toolUsed, err
	}
	return nonEmpty(final.Content, toolUsed)
}

func (o *Orchestrator) complete(ctx context.Context, conv models.Conversation, tools []provider.Tool) (provider.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.primary.Complete(ctx, conv, tools)
}

// runTool executes call. Unknown tools produce an error text for the model;
// malformed arguments abort the primary attempt.
func (o *Orchestrator) runTool(ctx context.Context, call models.ToolCall, fallbackQuery string) (string, bool, error) {
	if call.Name != ToolName {
		o.logger.Warn("model requested unknown tool", "tool", call.Name)
		return fmt.Sprintf("Error: unknown tool %q", call.Name), false, nil
	}
	var args struct {
		Query string `json:"query"`
	}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", false, fmt.Errorf("decode %s arguments: %w", ToolName, err)
		}
	}
	q := strings.TrimSpace(args.Query)
	if q == "" {
		q = fallbackQuery
	}
	if o.searcher == nil {
		return "", false, errors.New("no searcher configured")
	}
	o.logger.Info("running search tool", "query", q)
	return o.searcher.SearchText(ctx, q), true, nil
}

func (o *Orchestrator) askSecondary(ctx context.Context, query string) (string, error) {
	if o.secondary == nil {
		return "", provider.ErrMissingAPIKey
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.secondary.Generate(ctx, fmt.Sprintf(contingencyInstruction, query))
}

func nonEmpty(text string, toolUsed bool) (string, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", toolUsed, provider.ErrEmptyResponse
	}
	return text, toolUsed, nil
}
