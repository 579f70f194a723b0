package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mohammad-safakhou/newshub/models"
)

// NewsAPI implements Provider using newsapi.org
type NewsAPI struct {
	apiKey   string
	endpoint string
	http     *HTTPClient
	now      func() time.Time
}

func NewNewsAPI(apiKey, endpoint string, http *HTTPClient) *NewsAPI {
	if endpoint == "" {
		endpoint = "https://newsapi.org/v2/everything"
	}
	return &NewsAPI{apiKey: apiKey, endpoint: endpoint, http: http, now: time.Now}
}

func (n *NewsAPI) Name() string { return "newsapi" }

func (n *NewsAPI) Fetch(ctx context.Context, query string) ([]models.NewsItem, error) {
	if n.apiKey == "" {
		return nil, fmt.Errorf("%w: newsapi api key missing", ErrNotConfigured)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "pt")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", "10")

	var resp struct {
		Status   string `json:"status"`
		Articles []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
			Description string `json:"description"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	headers := map[string]string{"X-Api-Key": n.apiKey}
	if err := n.http.DoJSON(ctx, "GET", n.endpoint+"?"+params.Encode(), headers, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q", resp.Status)
	}

	now := n.now()
	out := make([]models.NewsItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.URL == "" {
			continue
		}
		published := models.ParsePublished(a.PublishedAt, time.RFC3339, now)
		source := fmt.Sprintf("NewsAPI (%s)", a.Source.Name)
		out = append(out, models.NewNewsItem(a.Title, a.URL, source, a.Description, published, now))
	}
	return out, nil
}
