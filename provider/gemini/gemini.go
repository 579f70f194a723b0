package gemini

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mohammad-safakhou/newshub/provider"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

// Doer sends a JSON request and decodes the JSON response.
type Doer interface {
	DoJSON(ctx context.Context, method, url string, headers map[string]string, body any, out any) error
}

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	http    Doer
	apiKey  string
	baseURL string
	model   string
}

func New(apiKey, baseURL, model string, http Doer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{http: http, apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), model: model}
}

func (c *Client) Name() string { return string(provider.Gemini) }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends prompt as a single user turn and joins the text parts of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini: %w", provider.ErrMissingAPIKey)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}
	var resp generateResponse
	headers := map[string]string{"x-goog-api-key": c.apiKey}
	if err := c.http.DoJSON(ctx, "POST", endpoint, headers, req, &resp); err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: %w", provider.ErrEmptyResponse)
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", provider.ErrEmptyResponse)
	}
	return text, nil
}
