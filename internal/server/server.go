package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/newshub/config"
	"github.com/mohammad-safakhou/newshub/internal/runtime"
)

// Deps are the collaborators the HTTP API is built on.
type Deps struct {
	ServiceName string
	Resolver    Resolver
	Analyst     Analyst
	Refresher   Refresher
	Store       Store
	Credentials runtime.Credentials
	CORSOrigins []string
	Metrics     *runtime.Metrics
	Logger      *slog.Logger
}

// NewEcho builds the router with middleware, the unified error handler and every route.
func NewEcho(d Deps) *echo.Echo {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Warn("request failed",
			"status", code,
			"method", req.Method,
			"path", req.URL.Path,
			"remote", c.RealIP(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", err,
		)
		if !c.Response().Committed {
			if req.Method == http.MethodHead {
				_ = c.NoContent(code)
				return
			}
			_ = c.JSON(code, map[string]string{"error": msg})
		}
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, runtime.APIKeyHeader},
	}))

	if d.Credentials.Insecure() {
		logger.Warn("no api key, key hash or jwt secret configured, accepting the development key", "key", runtime.DevAPIKey)
	}

	e.GET("/healthz", func(c echo.Context) error {
		cache := false
		if d.Resolver != nil {
			cache = d.Resolver.CacheAvailable()
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "service": d.ServiceName, "cache": cache})
	})
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	api := e.Group("/api")
	api.Use(runtime.EchoAuthMiddleware(d.Credentials))

	nh := &NewsHandler{Resolver: d.Resolver, Store: d.Store}
	nh.Register(api.Group("/news"))

	ch := &ChatHandler{Analyst: d.Analyst}
	ch.Register(api)

	oh := &OpsHandler{Refresher: d.Refresher, Store: d.Store, Logger: logger}
	oh.Register(api)

	return e
}

// Run builds the application from cfg, starts the scheduler and serves HTTP
// until ctx is cancelled. addr overrides server.address when non-empty.
func Run(ctx context.Context, cfg *config.Config, addr string) error {
	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if addr == "" {
		addr = cfg.Server.Address
	}

	sched, err := app.Scheduler()
	if err != nil {
		return err
	}
	if sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}

	e := NewEcho(app.Deps())
	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
