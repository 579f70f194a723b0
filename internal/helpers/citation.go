package helpers

import (
	"fmt"
	"strings"
)

// DefaultMaxSnippet bounds each summary handed to a reasoning model.
const DefaultMaxSnippet = 400

// Citation is one search result rendered for a model prompt.
type Citation struct {
	Index   int
	Title   string
	URL     string
	Snippet string
}

type citationConfig struct {
	maxSnippet int
}

// CitationOption configures citation formatting.
type CitationOption func(*citationConfig)

// WithMaxSnippetLength truncates snippets to n runes (default DefaultMaxSnippet).
func WithMaxSnippetLength(n int) CitationOption {
	return func(cfg *citationConfig) {
		if n > 0 {
			cfg.maxSnippet = n
		}
	}
}

// FormatCitation renders c as
//
//	[i] Title: <title>
//	Link: <url>
//	Summary: <snippet>
//
// followed by a blank line.
func FormatCitation(c Citation, opts ...CitationOption) string {
	cfg := citationConfig{maxSnippet: DefaultMaxSnippet}
	for _, opt := range opts {
		opt(&cfg)
	}
	snippet := Truncate(NormalizeSpace(c.Snippet), cfg.maxSnippet)
	return fmt.Sprintf("[%d] Title: %s\nLink: %s\nSummary: %s\n\n", c.Index, NormalizeSpace(c.Title), strings.TrimSpace(c.URL), snippet)
}

// FormatCitations concatenates the rendered citations in order.
func FormatCitations(citations []Citation, opts ...CitationOption) string {
	var b strings.Builder
	for _, c := range citations {
		b.WriteString(FormatCitation(c, opts...))
	}
	return b.String()
}
