package agent

import (
	"log/slog"

	"github.com/mohammad-safakhou/newshub/config"
	"github.com/mohammad-safakhou/newshub/internal/runtime"
	"github.com/mohammad-safakhou/newshub/internal/sources"
	"github.com/mohammad-safakhou/newshub/provider/gemini"
	"github.com/mohammad-safakhou/newshub/provider/groq"
)

// NewFromConfig wires Groq as primary and Gemini as secondary. Missing keys
// are not an error here: the affected provider fails fast on each request.
func NewFromConfig(cfg config.LLMConfig, searcher Searcher, logger *slog.Logger, metrics *runtime.Metrics) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Groq.APIKey == "" {
		logger.Warn("groq api key not configured, analysis will use the fallback provider")
	}
	if cfg.Gemini.APIKey == "" {
		logger.Warn("gemini api key not configured, fallback provider unavailable")
	}
	return New(Options{
		Primary:   groq.New(cfg.Groq.APIKey, cfg.Groq.BaseURL, cfg.Groq.Model, cfg.Groq.MaxTokens),
		Secondary: gemini.New(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model, sources.NewHTTPClient(cfg.Timeout, 0, 0, "")),
		Searcher:  searcher,
		Timeout:   cfg.Timeout,
		Logger:    logger,
		Metrics:   metrics,
	})
}
