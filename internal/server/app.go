package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mohammad-safakhou/newshub/config"
	"github.com/mohammad-safakhou/newshub/internal/agent"
	"github.com/mohammad-safakhou/newshub/internal/refresh"
	"github.com/mohammad-safakhou/newshub/internal/resolver"
	"github.com/mohammad-safakhou/newshub/internal/runtime"
	"github.com/mohammad-safakhou/newshub/internal/sources"
	"github.com/mohammad-safakhou/newshub/internal/store"
	"github.com/mohammad-safakhou/newshub/repository"
	"github.com/mohammad-safakhou/newshub/repository/redis_repository"
	"github.com/redis/go-redis/v9"
)

// connectCache dials the fast tier and verifies it answers PING.
var connectCache = repository.NewNewsCache

// App is the process-wide object graph shared by the server and the CLI.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *runtime.Metrics
	Store      *store.Store
	Redis      *redis.Client // nil when the fast tier is disabled or down
	Aggregator *sources.Aggregator
	Resolver   *resolver.Resolver
	Agent      *agent.Orchestrator
	Job        *refresh.Job
}

// NewApp opens the store, probes the fast tier once and wires every component.
// A Redis failure only disables the fast tier.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	base := runtime.NewLogger(os.Stderr, cfg.General.LogLevel, cfg.General.Production())

	st, err := store.New(ctx, cfg.Storage.Driver, cfg.Storage.DSN())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger := runtime.WithPersistence(base, st, slog.LevelInfo).With("service", cfg.General.ServiceName)
	metrics := runtime.NewMetrics()

	app := &App{Config: cfg, Logger: logger, Metrics: metrics, Store: st}

	var cache resolver.Cache
	cacheUp := false
	if cfg.Storage.Redis.Enabled() {
		r := cfg.Storage.Redis
		nc, client, err := connectCache(ctx, repository.RedisOptions{
			Host:     r.Host,
			Port:     r.Port,
			Password: r.Password,
			DB:       r.DB,
			Timeout:  r.Timeout,
		}, cfg.Storage.CacheTTL)
		if err != nil {
			logger.Warn("redis unavailable, fast tier disabled", "error", err)
		} else {
			// the connect PING is the startup probe
			app.Redis = client
			cache = nc
			cacheUp = true
		}
	}

	app.Aggregator = sources.NewFromConfig(cfg.Sources, logger, metrics)
	app.Resolver = resolver.New(resolver.Options{
		Cache:          cache,
		CacheAvailable: cacheUp,
		Store:          st,
		Live:           app.Aggregator,
		Logger:         logger,
		Metrics:        metrics,
	})
	app.Agent = agent.NewFromConfig(cfg.LLM, app.Aggregator, logger, metrics)
	app.Job = refresh.NewJob(app.Aggregator, st, cfg.Sources.BaseQuery, logger, metrics)
	return app, nil
}

// Scheduler returns the background refresher, or nil when scheduling is disabled.
// The Redis lock is only used when the fast tier answered at startup.
func (a *App) Scheduler() (*refresh.Scheduler, error) {
	if !a.Config.Scheduler.Enabled {
		return nil, nil
	}
	opts := refresh.SchedulerOptions{LockTTL: a.Config.Scheduler.LockTTL, Logger: a.Logger}
	if a.Redis != nil && a.Resolver.CacheAvailable() {
		opts.Locker = redis_repository.NewLocker(a.Redis)
	}
	return refresh.NewScheduler(a.Job, a.Config.Scheduler.Crons, opts)
}

// Deps exposes the app to the HTTP layer.
func (a *App) Deps() Deps {
	return Deps{
		ServiceName: a.Config.General.ServiceName,
		Resolver:    a.Resolver,
		Analyst:     a.Agent,
		Refresher:   a.Job,
		Store:       a.Store,
		Credentials: runtime.Credentials{
			APIKey:     a.Config.Server.APIKey,
			APIKeyHash: a.Config.Server.APIKeyHash,
			JWTSecret:  []byte(a.Config.Server.JWTSecret),
		},
		CORSOrigins: a.Config.Server.CORSOrigins,
		Metrics:     a.Metrics,
		Logger:      a.Logger,
	}
}

// Close releases Redis and the store.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
