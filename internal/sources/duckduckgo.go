package sources

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/mohammad-safakhou/newshub/models"
	"golang.org/x/net/html"
)

const duckDuckGoLimit = 5

var (
	ddgResultSel  = cascadia.MustCompile("div.result:not(.result--ad)")
	ddgTitleSel   = cascadia.MustCompile("a.result__a")
	ddgSnippetSel = cascadia.MustCompile(".result__snippet")
)

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint in the Brazilian region.
type DuckDuckGo struct {
	endpoint string
	http     *HTTPClient
	now      func() time.Time
}

func NewDuckDuckGo(endpoint string, http *HTTPClient) *DuckDuckGo {
	if endpoint == "" {
		endpoint = "https://html.duckduckgo.com/html/"
	}
	return &DuckDuckGo{endpoint: endpoint, http: http, now: time.Now}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Fetch(ctx context.Context, query string) ([]models.NewsItem, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "br-pt")
	body, err := d.http.Get(ctx, d.endpoint+"?"+params.Encode(), map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	now := d.now()
	out := make([]models.NewsItem, 0, duckDuckGoLimit)
	for _, res := range ddgResultSel.MatchAll(doc) {
		if len(out) == duckDuckGoLimit {
			break
		}
		link := matchFirst(ddgTitleSel, res)
		href := resolveDDGLink(attr(link, "href"))
		if link == nil || href == "" {
			continue
		}
		snippet := textOf(matchFirst(ddgSnippetSel, res))
		out = append(out, models.NewNewsItem(textOf(link), href, "DuckDuckGo", snippet, now, now))
	}
	return out, nil
}

// resolveDDGLink unwraps DuckDuckGo redirect links (/l/?uddg=<target>).
func resolveDDGLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
