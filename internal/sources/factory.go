package sources

import (
	"log/slog"

	"github.com/mohammad-safakhou/newshub/config"
	"github.com/mohammad-safakhou/newshub/internal/runtime"
)

// NewFromConfig wires every adapter. Keyed web search providers are only
// registered when their key is set; NewsAPI is always registered and skips
// itself without a key.
func NewFromConfig(cfg config.SourcesConfig, logger *slog.Logger, metrics *runtime.Metrics) *Aggregator {
	http := NewHTTPClient(cfg.Timeout, cfg.Retries, cfg.Backoff, cfg.UserAgent)
	gdeltQuery := cfg.GDELT.Query
	if gdeltQuery == "" {
		gdeltQuery = "segurança OR crime"
	}
	routes := []Route{
		{Provider: NewGoogleRSS(cfg.GoogleRSS.Endpoint, http), Query: Suffix(" Brasil")},
		{Provider: NewNewsAPI(cfg.NewsAPI.APIKey, cfg.NewsAPI.Endpoint, http)},
		{Provider: NewGDELT(cfg.GDELT.Endpoint, http), Query: Fixed(gdeltQuery)},
		{Provider: NewDuckDuckGo(cfg.DuckDuckGo.Endpoint, http), Query: Suffix(" Distrito Federal")},
	}
	if cfg.Brave.APIKey != "" {
		routes = append(routes, Route{Provider: NewBrave(cfg.Brave.APIKey, cfg.Brave.Endpoint, http), Query: Suffix(" Distrito Federal")})
	}
	if cfg.Serper.APIKey != "" {
		routes = append(routes, Route{Provider: NewSerper(cfg.Serper.APIKey, cfg.Serper.Endpoint, http), Query: Suffix(" Distrito Federal")})
	}
	return NewAggregator(Options{
		Timeout:      cfg.Timeout,
		LiveProvider: cfg.LiveProvider,
		LiveSuffix:   cfg.LiveSuffix,
		Logger:       logger,
		Metrics:      metrics,
	}, routes...)
}
