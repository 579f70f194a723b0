package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/newshub/repository/redis_repository"
	"github.com/redis/go-redis/v9"
)

// RedisOptions carries the connection settings of the fast tier.
type RedisOptions struct {
	Host     string
	Port     string
	Password string
	DB       int
	Timeout  time.Duration
}

// NewNewsCache connects to Redis and wraps the client in a NewsCache. The
// returned client is shared with other Redis users (the refresh lock) and
// must be closed by the caller.
func NewNewsCache(ctx context.Context, opts RedisOptions, ttl time.Duration) (*redis_repository.NewsCache, *redis.Client, error) {
	if opts.Host == "" {
		return nil, nil, fmt.Errorf("redis host is not configured")
	}
	if opts.Port == "" {
		opts.Port = "6379"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	c, err := redis_repository.Conn(ctx, opts.Host, opts.Port, opts.Password, opts.DB, opts.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("redis connect %s:%s: %w", opts.Host, opts.Port, err)
	}
	return redis_repository.NewNewsCache(c, ttl, opts.Timeout), c, nil
}
