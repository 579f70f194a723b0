package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mohammad-safakhou/newshub/models"
)

// Brave implements Provider using the Brave Search API
type Brave struct {
	apiKey   string
	endpoint string
	http     *HTTPClient
	now      func() time.Time
}

func NewBrave(apiKey, endpoint string, http *HTTPClient) *Brave {
	if endpoint == "" {
		endpoint = "https://api.search.brave.com/res/v1/web/search"
	}
	return &Brave{apiKey: apiKey, endpoint: endpoint, http: http, now: time.Now}
}

func (b *Brave) Name() string { return "brave" }

func (b *Brave) Fetch(ctx context.Context, query string) ([]models.NewsItem, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("%w: brave api key missing", ErrNotConfigured)
	}
	var resp struct {
		Web struct {
			Results []struct{ Title, URL, Description string } `json:"results"`
		} `json:"web"`
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", "10")
	params.Set("country", "BR")
	params.Set("search_lang", "pt-br")
	headers := map[string]string{"X-Subscription-Token": b.apiKey}
	if err := b.http.DoJSON(ctx, "GET", b.endpoint+"?"+params.Encode(), headers, nil, &resp); err != nil {
		return nil, err
	}
	now := b.now()
	var out []models.NewsItem
	for _, r := range resp.Web.Results {
		if r.URL == "" {
			continue
		}
		out = append(out, models.NewNewsItem(r.Title, r.URL, "Brave Search", r.Description, now, now))
	}
	return out, nil
}

// Serper implements Provider using serper.dev
type Serper struct {
	apiKey   string
	endpoint string
	http     *HTTPClient
	now      func() time.Time
}

func NewSerper(apiKey, endpoint string, http *HTTPClient) *Serper {
	if endpoint == "" {
		endpoint = "https://google.serper.dev/search"
	}
	return &Serper{apiKey: apiKey, endpoint: endpoint, http: http, now: time.Now}
}

func (s *Serper) Name() string { return "serper" }

func (s *Serper) Fetch(ctx context.Context, query string) ([]models.NewsItem, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: serper api key missing", ErrNotConfigured)
	}
	var resp struct {
		Organic []struct{ Title, Link, Snippet, Date string } `json:"organic"`
	}
	headers := map[string]string{"X-API-KEY": s.apiKey}
	body := map[string]any{"q": query, "num": 10, "gl": "br", "hl": "pt-br"}
	if err := s.http.DoJSON(ctx, "POST", s.endpoint, headers, body, &resp); err != nil {
		return nil, err
	}
	now := s.now()
	var out []models.NewsItem
	for _, r := range resp.Organic {
		if r.Link == "" {
			continue
		}
		out = append(out, models.NewNewsItem(r.Title, r.Link, "Serper", r.Snippet, now, now))
	}
	return out, nil
}
