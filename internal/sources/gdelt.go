package sources

import (
	"context"
	"net/url"
	"time"

	"github.com/mohammad-safakhou/newshub/models"
)

// GDELTDateLayout is the seendate format of the DOC 2.0 API.
const GDELTDateLayout = "20060102T150405Z"

// GDELT queries the GDELT DOC 2.0 article list restricted to Brazilian sources.
type GDELT struct {
	endpoint string
	http     *HTTPClient
	now      func() time.Time
}

func NewGDELT(endpoint string, http *HTTPClient) *GDELT {
	if endpoint == "" {
		endpoint = "https://api.gdeltproject.org/api/v2/doc/doc"
	}
	return &GDELT{endpoint: endpoint, http: http, now: time.Now}
}

func (g *GDELT) Name() string { return "gdelt" }

func (g *GDELT) Fetch(ctx context.Context, query string) ([]models.NewsItem, error) {
	params := url.Values{}
	params.Set("query", query+" country:BR sourcecountry:BR")
	params.Set("mode", "artlist")
	params.Set("format", "json")
	params.Set("timespan", "24h")
	params.Set("maxrecords", "10")

	var resp struct {
		Articles []struct {
			URL      string `json:"url"`
			Title    string `json:"title"`
			SeenDate string `json:"seendate"`
			Domain   string `json:"domain"`
		} `json:"articles"`
	}
	if err := g.http.DoJSON(ctx, "GET", g.endpoint+"?"+params.Encode(), nil, nil, &resp); err != nil {
		return nil, err
	}

	now := g.now()
	out := make([]models.NewsItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.URL == "" {
			continue
		}
		domain := a.Domain
		if domain == "" {
			domain = "N/A"
		}
		published := models.ParsePublished(a.SeenDate, GDELTDateLayout, now)
		out = append(out, models.NewNewsItem(a.Title, a.URL, "GDELT", "Domain: "+domain, published, now))
	}
	return out, nil
}
