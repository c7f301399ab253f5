// Package metrics holds the Prometheus collectors shared by the bot runtime.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the bot collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Updates         *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	RateLimited     *prometheus.CounterVec
	Outbound        *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	Sessions        prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginbot_updates_total",
				Help: "Telegram updates handled, by kind, handler and status.",
			},
			[]string{"kind", "handler", "status"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loginbot_handler_duration_seconds",
				Help:    "Update handler duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginbot_rate_limited_total",
				Help: "Updates dropped by the per-user rate limiter.",
			},
			[]string{"kind"},
		),
		Outbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginbot_outbound_calls_total",
				Help: "Telegram Bot API calls, by method and result.",
			},
			[]string{"method", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		Sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "loginbot_conversation_sessions",
				Help: "Registration conversations currently held in memory.",
			},
		),
	}
	m.registry.MustRegister(
		m.Updates, m.HandlerDuration, m.RateLimited, m.Outbound,
		m.HTTPRequests, m.HTTPDuration, m.Sessions,
	)
	return m
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpdate records one handled update.
func (m *Metrics) ObserveUpdate(kind, handler, status string, seconds float64) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(kind, handler, status).Inc()
	m.HandlerDuration.WithLabelValues(handler).Observe(seconds)
}

// ObserveRateLimited records an update rejected by the rate limiter.
func (m *Metrics) ObserveRateLimited(kind string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(kind).Inc()
}

// ObserveOutbound records one Bot API call.
func (m *Metrics) ObserveOutbound(method string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "fail"
	}
	m.Outbound.WithLabelValues(method, result).Inc()
}

// ObserveHTTP records one inbound HTTP request.
func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path, status).Observe(seconds)
}

// SetSessions reports the number of live conversation sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}
