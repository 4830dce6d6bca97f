package providers

import (
	"tandem/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncRouteDecision(route string)
	IncEvictions(count int)
	ObserveMaintenanceDuration(duration time.Duration)
	SetCachedItems(category string, count int)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	routeDecisions      *prometheus.CounterVec
	evictionsTotal      prometheus.Counter
	maintenanceDuration prometheus.Histogram
	cachedItems         *prometheus.GaugeVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncRouteDecision(route string) {
	m.routeDecisions.WithLabelValues(route).Inc()
}

func (m *MetricsProvider) IncEvictions(count int) {
	m.evictionsTotal.Add(float64(count))
}

func (m *MetricsProvider) ObserveMaintenanceDuration(duration time.Duration) {
	m.maintenanceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetCachedItems(category string, count int) {
	m.cachedItems.WithLabelValues(category).Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tandem_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tandem_cache_hits_total",
			Help: "Total number of hot cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tandem_cache_misses_total",
			Help: "Total number of hot cache misses",
		}),

		routeDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_route_decisions_total",
			Help: "Screen route decisions by outcome",
		}, []string{"route"}),

		evictionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tandem_cache_evictions_total",
			Help: "Content cache entries removed by maintenance",
		}),

		maintenanceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tandem_maintenance_duration_seconds",
			Help:    "Duration of content cache maintenance passes",
			Buckets: prometheus.DefBuckets,
		}),

		cachedItems: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tandem_cached_items",
			Help: "Content cache entries per category",
		}, []string{"category"}),
	}
}

type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncRouteDecision(_ string)                        {}
func (n *noopMetrics) IncEvictions(_ int)                               {}
func (n *noopMetrics) ObserveMaintenanceDuration(_ time.Duration)       {}
func (n *noopMetrics) SetCachedItems(_ string, _ int)                   {}
