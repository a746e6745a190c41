package httpcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts cache outcomes, a nil *Metrics records nothing
type Metrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	stores prometheus.Counter
	bypass prometheus.Counter
	errors *prometheus.CounterVec
}

// NewMetrics creates the cache collectors and registers them with registerer
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "composer_http_cache_hits_total",
			Help: "Responses served from the http cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "composer_http_cache_misses_total",
			Help: "Lookups that found no fresh cache entry",
		}),
		stores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "composer_http_cache_stores_total",
			Help: "Responses admitted to the http cache",
		}),
		bypass: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "composer_http_cache_bypass_total",
			Help: "Requests that skipped the cache lookup with no-cache",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "composer_http_cache_errors_total",
			Help: "Failed cache store operations",
		}, []string{"operation"}),
	}

	registerer.MustRegister(m.hits, m.misses, m.stores, m.bypass, m.errors)

	return m
}

func (m *Metrics) recordHit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) recordMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) recordStore() {
	if m != nil {
		m.stores.Inc()
	}
}

func (m *Metrics) recordBypass() {
	if m != nil {
		m.bypass.Inc()
	}
}

func (m *Metrics) recordError(operation string) {
	if m != nil {
		m.errors.WithLabelValues(operation).Inc()
	}
}
