// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "url_shortener"

// Label values.
const (
	ResultAllowed  = "allowed"
	ResultRejected = "rejected"
	ResultError    = "error"

	KindGenerated = "generated"
	KindCustom    = "custom"

	StatusFound    = "found"
	StatusNotFound = "not_found"
)

// Metrics contains the Prometheus collectors for the rate limiter, the short
// code allocator and the redirect endpoint.
type Metrics struct {
	RateLimitDecisions  *prometheus.CounterVec
	ShortCodesAllocated *prometheus.CounterVec
	ShortCodeCollisions prometheus.Counter
	Redirects           *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// It panics if any of the collectors fail to register.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "The number of rate limiter decisions by result",
		}, []string{"result"}),
		ShortCodesAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "short_codes_allocated_total",
			Help:      "The number of allocated short codes by kind",
		}, []string{"kind"}),
		ShortCodeCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "short_code_collisions_total",
			Help:      "The number of generated short codes which were already taken",
		}),
		Redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "The number of short code resolutions by status",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.RateLimitDecisions,
		m.ShortCodesAllocated,
		m.ShortCodeCollisions,
		m.Redirects,
	)

	return m
}

// Discard returns collectors bound to a throwaway registry.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
