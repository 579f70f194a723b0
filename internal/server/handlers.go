package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/newshub/internal/agent"
	"github.com/mohammad-safakhou/newshub/internal/refresh"
	"github.com/mohammad-safakhou/newshub/models"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
	defaultLogLimit    = 100
	maxLogLimit        = 500
)

type Resolver interface {
	Resolve(ctx context.Context, query string) []models.NewsItem
	CacheAvailable() bool
}

type Analyst interface {
	Answer(ctx context.Context, query string) agent.Answer
}

type Refresher interface {
	Run(ctx context.Context, trigger string) refresh.Report
}

type Store interface {
	Recent(ctx context.Context, limit int) ([]models.NewsItem, error)
	ListLogs(ctx context.Context, limit int) ([]models.LogEntry, error)
}

// NewsHandler serves resolver lookups and the stored feed.
type NewsHandler struct {
	Resolver Resolver
	Store    Store
}

func (h *NewsHandler) Register(g *echo.Group) {
	g.GET("", h.search)
	g.GET("/recent", h.recent)
}

func (h *NewsHandler) search(c echo.Context) error {
	items := h.Resolver.Resolve(c.Request().Context(), c.QueryParam("q"))
	return c.JSON(http.StatusOK, items)
}

func (h *NewsHandler) recent(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"), defaultRecentLimit, maxRecentLimit)
	if err != nil {
		return err
	}
	items, err := h.Store.Recent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load news")
	}
	return c.JSON(http.StatusOK, items)
}

// ChatHandler exposes the reasoning orchestrator.
type ChatHandler struct {
	Analyst Analyst
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.GET("/chat", h.chat)
}

type chatResponse struct {
	Response         string `json:"response"`
	Provider         string `json:"provider"`
	Degraded         bool   `json:"degraded"`
	ToolUsed         bool   `json:"tool_used"`
	ContextDiscarded bool   `json:"context_discarded"`
}

func (h *ChatHandler) chat(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	ans := h.Analyst.Answer(c.Request().Context(), q)
	return c.JSON(http.StatusOK, chatResponse{
		Response:         ans.Text,
		Provider:         ans.Provider,
		Degraded:         ans.Degraded,
		ToolUsed:         ans.ToolUsed,
		ContextDiscarded: ans.ContextDiscarded,
	})
}

// OpsHandler triggers refreshes and lists persisted logs.
type OpsHandler struct {
	Refresher Refresher
	Store     Store
	Logger    *slog.Logger
}

func (h *OpsHandler) Register(g *echo.Group) {
	g.POST("/refresh", h.refresh)
	g.GET("/logs", h.logs)
}

type refreshResponse struct {
	Status    string    `json:"status"`
	RunID     string    `json:"run_id"`
	Fetched   int       `json:"fetched"`
	Inserted  int       `json:"inserted"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *OpsHandler) refresh(c echo.Context) error {
	rep := h.Refresher.Run(c.Request().Context(), refresh.TriggerManual)
	status := "refresh completed"
	if rep.Error != "" {
		status = "refresh completed with errors"
	}
	return c.JSON(http.StatusOK, refreshResponse{
		Status:    status,
		RunID:     rep.RunID,
		Fetched:   rep.Fetched,
		Inserted:  rep.Inserted,
		Failed:    rep.Failed,
		Error:     rep.Error,
		Timestamp: rep.FinishedAt,
	})
}

func (h *OpsHandler) logs(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"), defaultLogLimit, maxLogLimit)
	if err != nil {
		return err
	}
	entries, err := h.Store.ListLogs(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load logs")
	}
	return c.JSON(http.StatusOK, entries)
}

// parseLimit applies def when raw is empty and caps the result at ceiling.
func parseLimit(raw string, def, ceiling int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
	}
	return min(n, ceiling), nil
}
