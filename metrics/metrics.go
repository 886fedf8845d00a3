// Package metrics exposes Prometheus counters for grants, rejections and client refreshes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mockoauth"

// Metrics owns its registry so tests and multiple servers in one process do not collide.
type Metrics struct {
	registry     *prometheus.Registry
	tokensIssued *prometheus.CounterVec
	tokenErrors  *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Token pairs issued by the token endpoint, by grant type.",
		}, []string{"grant_type"}),
		tokenErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_errors_total",
			Help:      "Token endpoint requests rejected, by grant type and OAuth error code.",
		}, []string{"grant_type", "error"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_refreshes_total",
			Help:      "Client session refreshes, by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.tokensIssued,
		m.tokenErrors,
		m.refreshes,
		m.httpRequests,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) TokenIssued(grantType string) {
	m.tokensIssued.WithLabelValues(grantType).Inc()
}

func (m *Metrics) TokenRejected(grantType, errorCode string) {
	m.tokenErrors.WithLabelValues(grantType, errorCode).Inc()
}

func (m *Metrics) RefreshCompleted(outcome string) {
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RequestServed(route, code string) {
	m.httpRequests.WithLabelValues(route, code).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
