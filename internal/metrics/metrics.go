package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finanalyst"

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	HTTPRequestsTotal *prometheus.CounterVec

	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration *prometheus.HistogramVec

	MarketRequestsTotal   *prometheus.CounterVec
	MarketRequestDuration *prometheus.HistogramVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	RateLimitHitsTotal *prometheus.CounterVec

	AgentFailuresTotal *prometheus.CounterVec
	AlertsTriggered    *prometheus.CounterVec
	ActiveAlerts       prometheus.Gauge
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry - отдельный реестр нужен тестам, глобальный не дает регистрировать дважды
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of analysis requests processed",
			},
			[]string{"type", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Analysis duration in seconds",
				Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 180, 300},
			},
			[]string{"type"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of analyses currently being processed",
			},
		),

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),

		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM API requests",
			},
			[]string{"provider", "status"},
		),
		LLMRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM request duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),

		SearchRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Total number of web and news search requests",
			},
			[]string{"provider", "status"},
		),
		SearchRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_request_duration_seconds",
				Help:      "Search request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		),

		MarketRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "market_requests_total",
				Help:      "Total number of market data requests",
			},
			[]string{"status"},
		),
		MarketRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "market_request_duration_seconds",
				Help:      "Market data request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{},
		),

		CacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),

		RateLimitHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limit hits",
			},
			[]string{"surface"},
		),

		AgentFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_failures_total",
				Help:      "Total number of failed agent runs",
			},
			[]string{"agent"},
		),
		AlertsTriggered: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_triggered_total",
				Help:      "Total number of triggered price alerts",
			},
			[]string{"condition"},
		),
		ActiveAlerts: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_alerts",
				Help:      "Number of active price alerts",
			},
		),
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor - /metrics для нестандартного реестра
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(reqType, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(reqType, status).Inc()
	m.RequestDuration.WithLabelValues(reqType).Observe(duration.Seconds())
}

func (m *Metrics) RecordHTTPRequest(method, route string, code int) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusCode(code)).Inc()
}

func (m *Metrics) RecordLLMRequest(provider, status string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordSearchRequest(provider, status string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(provider, status).Inc()
	m.SearchRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordMarketRequest(status string, duration time.Duration) {
	m.MarketRequestsTotal.WithLabelValues(status).Inc()
	m.MarketRequestDuration.WithLabelValues().Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) RecordRateLimitHit(surface string) {
	m.RateLimitHitsTotal.WithLabelValues(surface).Inc()
}

func (m *Metrics) RecordAgentFailure(agent string) {
	m.AgentFailuresTotal.WithLabelValues(agent).Inc()
}

func (m *Metrics) RecordAlertTriggered(condition string) {
	m.AlertsTriggered.WithLabelValues(condition).Inc()
}

func (m *Metrics) SetActiveAlerts(count float64) {
	m.ActiveAlerts.Set(count)
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}

func statusCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
