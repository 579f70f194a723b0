package sources

import (
	"bytes"
	"context"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mohammad-safakhou/newshub/models"
)

const googleRSSLimit = 10

// GoogleRSS searches Google News through its RSS endpoint.
type GoogleRSS struct {
	endpoint string
	http     *HTTPClient
	parser   *gofeed.Parser
	now      func() time.Time
}

func NewGoogleRSS(endpoint string, http *HTTPClient) *GoogleRSS {
	if endpoint == "" {
		endpoint = "https://news.google.com/rss/search"
	}
	return &GoogleRSS{endpoint: endpoint, http: http, parser: gofeed.NewParser(), now: time.Now}
}

func (g *GoogleRSS) Name() string { return "google_rss" }

func (g *GoogleRSS) Fetch(ctx context.Context, query string) ([]models.NewsItem, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", "pt-BR")
	params.Set("gl", "BR")
	params.Set("ceid", "BR:pt-419")
	body, err := g.http.Get(ctx, g.endpoint+"?"+params.Encode(), map[string]string{"Accept": "application/rss+xml"})
	if err != nil {
		return nil, err
	}
	feed, err := g.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	now := g.now()
	out := make([]models.NewsItem, 0, googleRSSLimit)
	for _, entry := range feed.Items {
		if len(out) == googleRSSLimit {
			break
		}
		if entry.Link == "" {
			continue
		}
		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		}
		out = append(out, models.NewNewsItem(entry.Title, entry.Link, "Google News RSS", entry.Description, published, now))
	}
	return out, nil
}
