package models

import (
	"errors"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newshub/internal/helpers"
)

// DefaultLanguage is assigned to items whose source does not report a language.
const DefaultLanguage = "pt"

// ErrItemNotFound is returned when a news item is not stored
var ErrItemNotFound = errors.New("news item not found")

// NewsItem is a single deduplicated news record. ID is the fingerprint of URL.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	Snippet     string    `json:"snippet"`
	Language    string    `json:"language"`
}

// NewNewsItem builds an item from raw provider fields. Title and snippet are
// reduced to plain text, the URL is canonicalised and the ID derived from it;
// a zero publishedAt becomes ingestedAt.
func NewNewsItem(title, rawURL, source, snippet string, publishedAt, ingestedAt time.Time) NewsItem {
	canonical := helpers.CanonicalOrTrimmed(rawURL)
	if publishedAt.IsZero() {
		publishedAt = ingestedAt
	}
	return NewsItem{
		ID:          helpers.Fingerprint(rawURL),
		Title:       helpers.PlainText(title),
		URL:         canonical,
		PublishedAt: publishedAt,
		Source:      source,
		Snippet:     helpers.PlainText(snippet),
		Language:    DefaultLanguage,
	}
}

// ParsePublished parses raw with layout. An empty or unparsable value yields ingestedAt.
func ParsePublished(raw, layout string, ingestedAt time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ingestedAt
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return ingestedAt
	}
	return t
}

// Dedupe keeps the first occurrence of every ID, preserving order.
func Dedupe(items []NewsItem) []NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]NewsItem, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// LogEntry is a row of the append-only log table.
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Role of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by a reasoning provider.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ConversationTurn is one message of a request-scoped conversation.
// ToolCalls is set on assistant turns, ToolCallID and Name on tool results.
type ConversationTurn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Conversation is an ordered, append-only list of turns.
type Conversation []ConversationTurn

// Append returns a new conversation with turn added; the receiver is not modified.
func (c Conversation) Append(turns ...ConversationTurn) Conversation {
	out := make(Conversation, 0, len(c)+len(turns))
	out = append(out, c...)
	return append(out, turns...)
}
