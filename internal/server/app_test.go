package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/newshub/config"
	"github.com/mohammad-safakhou/newshub/repository"
	"github.com/mohammad-safakhou/newshub/repository/redis_repository"
	"github.com/redis/go-redis/v9"
)

func testAppConfig() *config.Config {
	return &config.Config{
		General: config.GeneralConfig{ServiceName: "newshub", LogLevel: "error"},
		Storage: config.StorageConfig{
			Driver:   "sqlite",
			SQLite:   config.SQLiteConfig{Path: ":memory:"},
			Redis:    config.RedisConfig{Host: "cache.internal", Port: "6379", Timeout: time.Second},
			CacheTTL: time.Minute,
		},
	}
}

func stubConnectCache(t *testing.T, fn func(context.Context, repository.RedisOptions, time.Duration) (*redis_repository.NewsCache, *redis.Client, error)) {
	t.Helper()
	orig := connectCache
	connectCache = fn
	t.Cleanup(func() { connectCache = orig })
}

func TestNewAppLatchFollowsConnect(t *testing.T) {
	calls := 0
	stubConnectCache(t, func(_ context.Context, opts repository.RedisOptions, ttl time.Duration) (*redis_repository.NewsCache, *redis.Client, error) {
		calls++
		// nothing listens here, so any second PING would fail
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		return redis_repository.NewNewsCache(client, ttl, opts.Timeout), client, nil
	})

	app, err := NewApp(context.Background(), testAppConfig())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	if calls != 1 {
		t.Fatalf("expected one connect, got %d", calls)
	}
	if !app.Resolver.CacheAvailable() {
		t.Fatalf("expected fast tier available after a successful connect")
	}
	if app.Redis == nil {
		t.Fatalf("expected redis client to be kept")
	}
}

func TestNewAppConnectFailureDisablesCache(t *testing.T) {
	stubConnectCache(t, func(context.Context, repository.RedisOptions, time.Duration) (*redis_repository.NewsCache, *redis.Client, error) {
		return nil, nil, errors.New("dial tcp: connection refused")
	})

	app, err := NewApp(context.Background(), testAppConfig())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	if app.Resolver.CacheAvailable() {
		t.Fatalf("expected fast tier unavailable")
	}
	if app.Redis != nil {
		t.Fatalf("expected no redis client")
	}
}
