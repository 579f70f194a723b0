package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mohammad-safakhou/newshub/internal/runtime"
	"github.com/mohammad-safakhou/newshub/models"
	"github.com/mohammad-safakhou/newshub/repository/redis_repository"
)

// RecentLimit is the number of stored items returned for an empty query.
const RecentLimit = 50

// Cache is the fast tier.
type Cache interface {
	Get(ctx context.Context, query string) ([]models.NewsItem, error)
	Set(ctx context.Context, query string, items []models.NewsItem) error
}

// Store is the durable tier.
type Store interface {
	Search(ctx context.Context, q string, limit int) ([]models.NewsItem, error)
	Recent(ctx context.Context, limit int) ([]models.NewsItem, error)
	SaveItems(ctx context.Context, items []models.NewsItem) (int, error)
}

// LiveSource fetches fresh items when both tiers miss.
type LiveSource interface {
	FetchLive(ctx context.Context, query string) ([]models.NewsItem, error)
}

// Resolver answers queries from the cheapest tier that has results:
// cache, then store, then a single live provider whose results are written
// back to the store and the cache.
type Resolver struct {
	cache          Cache
	cacheAvailable bool // set once at construction, never re-probed
	store          Store
	live           LiveSource
	searchLimit    int
	logger         *slog.Logger
	metrics        *runtime.Metrics
}

// Options configures a Resolver. Cache may be nil, in which case the fast
// tier is treated as unavailable regardless of CacheAvailable.
type Options struct {
	Cache          Cache
	CacheAvailable bool
	Store          Store
	Live           LiveSource
	SearchLimit    int
	Logger         *slog.Logger
	Metrics        *runtime.Metrics
}

func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.SearchLimit
	if limit <= 0 {
		limit = RecentLimit
	}
	r := &Resolver{
		cache:          opts.Cache,
		cacheAvailable: opts.Cache != nil && opts.CacheAvailable,
		store:          opts.Store,
		live:           opts.Live,
		searchLimit:    limit,
		logger:         logger.With("component", "resolver"),
		metrics:        opts.Metrics,
	}
	if !r.cacheAvailable {
		r.logger.Warn("fast tier unavailable, serving from store and live providers only")
	}
	return r
}

// CacheAvailable reports the latch decided at construction.
func (r *Resolver) CacheAvailable() bool { return r.cacheAvailable }

// Resolve never fails: tier errors are logged and the next tier is tried.
// The result is never nil.
func (r *Resolver) Resolve(ctx context.Context, query string) []models.NewsItem {
	q := strings.TrimSpace(query)
	if q == "" {
		items, err := r.store.Recent(ctx, RecentLimit)
		if err != nil {
			r.logger.Error("recent items unavailable", "err", err)
			return []models.NewsItem{}
		}
		r.metrics.ResolverTier("recent")
		return nonNil(items)
	}

	if r.cacheAvailable {
		items, err := r.cache.Get(ctx, q)
		switch {
		case err == nil:
			r.logger.Debug("cache hit", "query", q, "items", len(items))
			r.metrics.ResolverTier("cache")
			return nonNil(items)
		case !errors.Is(err, redis_repository.ErrCacheMiss):
			r.logger.Warn("cache read failed", "query", q, "err", err)
			r.metrics.CacheError("get")
		}
	}

	items, err := r.store.Search(ctx, q, r.searchLimit)
	if err != nil {
		r.logger.Error("store search failed", "query", q, "err", err)
	} else if len(items) > 0 {
		r.metrics.ResolverTier("store")
		return items
	}

	live, err := r.live.FetchLive(ctx, q)
	if err != nil {
		r.logger.Error("live provider unavailable", "query", q, "err", err)
	}
	if len(live) == 0 {
		r.metrics.ResolverTier("empty")
		return []models.NewsItem{}
	}

	inserted, err := r.store.SaveItems(ctx, live)
	if err != nil {
		r.logger.Warn("write-through to store incomplete", "query", q, "inserted", inserted, "err", err)
	}
	if r.cacheAvailable {
		if err := r.cache.Set(ctx, q, live); err != nil {
			r.logger.Warn("cache write failed", "query", q, "err", err)
			r.metrics.CacheError("set")
		}
	}
	r.metrics.ResolverTier("live")
	r.logger.Info("served from live provider", "query", q, "items", len(live), "inserted", inserted)
	return live
}

func nonNil(items []models.NewsItem) []models.NewsItem {
	if items == nil {
		return []models.NewsItem{}
	}
	return items
}
