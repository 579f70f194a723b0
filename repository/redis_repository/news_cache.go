package redis_repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mohammad-safakhou/newshub/internal/helpers"
	"github.com/mohammad-safakhou/newshub/models"
	"github.com/redis/go-redis/v9"
)

const newsKeyPrefix = "news:"

// DefaultTTL is how long a cached query result stays valid.
const DefaultTTL = 600 * time.Second

// ErrCacheMiss is returned by Get when no entry exists for the query.
var ErrCacheMiss = errors.New("cache miss")

// NewsCache stores query results as JSON arrays of news items.
type NewsCache struct {
	client  redis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
}

// NewNewsCache wraps client. Non-positive ttl or timeout fall back to defaults.
func NewNewsCache(client redis.UniversalClient, ttl, timeout time.Duration) *NewsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &NewsCache{client: client, ttl: ttl, timeout: timeout}
}

// Key returns the cache key for query: lower-cased, trimmed, inner whitespace collapsed.
func Key(query string) string {
	return newsKeyPrefix + helpers.NormalizeQuery(query)
}

// Get returns the cached items for query or ErrCacheMiss.
func (c *NewsCache) Get(ctx context.Context, query string) ([]models.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	val, err := c.client.Get(ctx, Key(query)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var items []models.NewsItem
	if err := json.Unmarshal(val, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Set caches items for query with the configured TTL.
func (c *NewsCache) Set(ctx context.Context, query string, items []models.NewsItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Set(ctx, Key(query), data, c.ttl).Err()
}

// Probe reports whether the backing Redis answers.
func (c *NewsCache) Probe(ctx context.Context) bool {
	return Probe(ctx, c.client, c.timeout)
}
