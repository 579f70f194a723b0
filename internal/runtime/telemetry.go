package runtime

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sourceFetch    *prometheus.CounterVec
	sourceItems    *prometheus.CounterVec
	resolverTier   *prometheus.CounterVec
	cacheErrors    *prometheus.CounterVec
	reasoning      *prometheus.CounterVec
	refreshRuns    *prometheus.CounterVec
	refreshInserts prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		sourceFetch: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newshub_source_fetch_total",
			Help: "Provider fetches by outcome.",
		}, []string{"provider", "outcome"}),
		sourceItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newshub_source_items_total",
			Help: "Items returned per provider.",
		}, []string{"provider"}),
		resolverTier: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newshub_resolver_tier_total",
			Help: "Resolver answers by serving tier.",
		}, []string{"tier"}),
		cacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newshub_cache_errors_total",
			Help: "Fast tier errors by operation.",
		}, []string{"op"}),
		reasoning: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newshub_reasoning_total",
			Help: "Reasoning answers by path taken.",
		}, []string{"path"}),
		refreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newshub_refresh_runs_total",
			Help: "Refresh runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		refreshInserts: f.NewCounter(prometheus.CounterOpts{
			Name: "newshub_refresh_inserted_total",
			Help: "News items inserted by refresh runs.",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SourceFetch(provider, outcome string, items int) {
	if m == nil {
		return
	}
	m.sourceFetch.WithLabelValues(provider, outcome).Inc()
	if items > 0 {
		m.sourceItems.WithLabelValues(provider).Add(float64(items))
	}
}

func (m *Metrics) ResolverTier(tier string) {
	if m == nil {
		return
	}
	m.resolverTier.WithLabelValues(tier).Inc()
}

func (m *Metrics) CacheError(op string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Reasoning(path string) {
	if m == nil {
		return
	}
	m.reasoning.WithLabelValues(path).Inc()
}

func (m *Metrics) RefreshRun(trigger, outcome string, inserted int) {
	if m == nil {
		return
	}
	m.refreshRuns.WithLabelValues(trigger, outcome).Inc()
	if inserted > 0 {
		m.refreshInserts.Add(float64(inserted))
	}
}
