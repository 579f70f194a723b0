package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newshub/internal/helpers"
	"github.com/mohammad-safakhou/newshub/internal/runtime"
	"github.com/mohammad-safakhou/newshub/models"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownProvider is returned when a provider name is not registered.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrNotConfigured is returned by adapters that lack a credential.
	ErrNotConfigured = errors.New("provider not configured")
)

// NoNewsFound is the tool result when the live search returns nothing.
const NoNewsFound = "No news found for this search."

// Provider fetches news items for a query from one external source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, query string) ([]models.NewsItem, error)
}

// QueryFunc derives the query a provider receives from the refresh base query.
type QueryFunc func(base string) string

// Suffix appends s to the base query.
func Suffix(s string) QueryFunc { return func(base string) string { return base + s } }

// Fixed ignores the base query.
func Fixed(q string) QueryFunc { return func(string) string { return q } }

// Route registers a provider with the query it receives during FetchAll.
type Route struct {
	Provider Provider
	Query    QueryFunc
}

// Options configures an Aggregator.
type Options struct {
	Timeout      time.Duration // per provider call
	LiveProvider string
	LiveSuffix   string
	Logger       *slog.Logger
	Metrics      *runtime.Metrics
}

// Aggregator dispatches queries to providers and merges their results.
type Aggregator struct {
	routes  []Route
	byName  map[string]Provider
	opts    Options
	logger  *slog.Logger
	metrics *runtime.Metrics
}

func NewAggregator(opts Options, routes ...Route) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		byName:  make(map[string]Provider, len(routes)),
		opts:    opts,
		logger:  logger.With("component", "sources"),
		metrics: opts.Metrics,
	}
	for _, r := range routes {
		if r.Query == nil {
			r.Query = Suffix("")
		}
		a.routes = append(a.routes, r)
		a.byName[r.Provider.Name()] = r.Provider
	}
	return a
}

// Providers lists registered provider names in dispatch order.
func (a *Aggregator) Providers() []string {
	names := make([]string, 0, len(a.routes))
	for _, r := range a.routes {
		names = append(names, r.Provider.Name())
	}
	return names
}

// FetchAll queries every provider concurrently and returns the union of their
// results deduplicated by fingerprint, the first provider in registration
// order winning. A failing provider contributes nothing.
func (a *Aggregator) FetchAll(ctx context.Context, base string) []models.NewsItem {
	results := make([][]models.NewsItem, len(a.routes))
	var g errgroup.Group
	for i, r := range a.routes {
		i, r := i, r
		g.Go(func() error {
			results[i] = a.run(ctx, r.Provider, r.Query(base))
			return nil
		})
	}
	_ = g.Wait()

	var all []models.NewsItem
	for _, items := range results {
		all = append(all, items...)
	}
	out := models.Dedupe(all)
	a.logger.Info("fetched all sources", "providers", len(a.routes), "items", len(out))
	return out
}

// Fetch runs a single provider with the same isolation as FetchAll.
func (a *Aggregator) Fetch(ctx context.Context, name, query string) ([]models.NewsItem, error) {
	p, ok := a.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return models.Dedupe(a.run(ctx, p, query)), nil
}

// FetchLive runs the configured live provider with the regional suffix appended.
func (a *Aggregator) FetchLive(ctx context.Context, query string) ([]models.NewsItem, error) {
	return a.Fetch(ctx, a.opts.LiveProvider, strings.TrimSpace(query)+a.opts.LiveSuffix)
}

// SearchText runs the live search and renders the results as a numbered
// plain-text block for a reasoning model.
func (a *Aggregator) SearchText(ctx context.Context, query string) string {
	items, err := a.FetchLive(ctx, query)
	if err != nil {
		a.logger.Warn("live search unavailable", "err", err)
	}
	if len(items) == 0 {
		return NoNewsFound
	}
	citations := make([]helpers.Citation, 0, len(items))
	for i, it := range items {
		citations = append(citations, helpers.Citation{Index: i + 1, Title: it.Title, URL: it.URL, Snippet: it.Snippet})
	}
	return helpers.FormatCitations(citations)
}

// run calls p with its own timeout and turns every failure, panics included,
// into an empty result.
func (a *Aggregator) run(ctx context.Context, p Provider, query string) (items []models.NewsItem) {
	name := p.Name()
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("provider panicked", "provider", name, "panic", r)
			a.metrics.SourceFetch(name, "error", 0)
			items = nil
		}
	}()

	items, err := p.Fetch(ctx, query)
	switch {
	case errors.Is(err, ErrNotConfigured):
		a.logger.Warn("provider skipped", "provider", name, "reason", err)
		a.metrics.SourceFetch(name, "skipped", 0)
		return nil
	case err != nil:
		a.logger.Warn("provider failed", "provider", name, "query", query, "err", err, "elapsed", time.Since(start))
		a.metrics.SourceFetch(name, "error", 0)
		return nil
	}
	a.logger.Debug("provider fetched", "provider", name, "items", len(items), "elapsed", time.Since(start))
	a.metrics.SourceFetch(name, "ok", len(items))
	return items
}
