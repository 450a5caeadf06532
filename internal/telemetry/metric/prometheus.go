// Package metric provides Prometheus metrics for chartered-cli.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chartered"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Login metrics
	LoginsTotal *prometheus.CounterVec

	// Extension metrics
	ExtensionsTotal *prometheus.CounterVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	ForcedLogouts prometheus.Counter
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with the Go and process collectors
// and every chartered metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		registry: reg,

		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by method and result.",
		}, []string{"method", "result"}),

		ExtensionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extensions_total",
			Help:      "Session extension ticks by result.",
		}, []string{"result"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Gateway requests by endpoint kind and outcome.",
		}, []string{"endpoint_kind", "outcome"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Gateway request latency.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint_kind"}),

		ForcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_logouts_total",
			Help:      "Sessions cleared because the server answered 401.",
		}),
	}

	reg.MustRegister(
		r.LoginsTotal,
		r.ExtensionsTotal,
		r.RequestsTotal,
		r.RequestDuration,
		r.ForcedLogouts,
	)

	return r
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// RecordLogin counts a login attempt. method is "password" or "oauth",
// result is "success" or "failure".
func (r *Registry) RecordLogin(method, result string) {
	r.LoginsTotal.WithLabelValues(method, result).Inc()
}

// RecordExtension counts an extension tick result: success, failure,
// stale or skipped.
func (r *Registry) RecordExtension(result string) {
	r.ExtensionsTotal.WithLabelValues(result).Inc()
}

// RecordRequest counts a gateway request. kind is "authenticated" or
// "unauthenticated".
func (r *Registry) RecordRequest(kind, outcome string) {
	r.RequestsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveRequestDuration records gateway request latency in seconds.
func (r *Registry) ObserveRequestDuration(kind string, seconds float64) {
	r.RequestDuration.WithLabelValues(kind).Observe(seconds)
}

// IncForcedLogout counts a 401-triggered logout.
func (r *Registry) IncForcedLogout() {
	r.ForcedLogouts.Inc()
}
