// Package metric provides Prometheus metrics for chartered-cli.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionState is the read side of the session store as seen at scrape time.
type SessionState interface {
	// IsAuthenticated reports whether a usable session is held.
	IsAuthenticated() bool

	// ExpiresIn returns the time left on the current session, zero when
	// none is held.
	ExpiresIn() time.Duration
}

// Collector reports the current session state on every scrape.
type Collector struct {
	state SessionState

	authenticated *prometheus.Desc
	expiresIn     *prometheus.Desc
}

// NewCollector creates a collector reading from state.
func NewCollector(state SessionState) *Collector {
	return &Collector{
		state: state,
		authenticated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "authenticated"),
			"1 when a usable session is held, 0 otherwise.",
			nil, nil,
		),
		expiresIn: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "expires_in_seconds"),
			"Seconds until the cached session expiry.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.authenticated
	ch <- c.expiresIn
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var authenticated float64
	if c.state.IsAuthenticated() {
		authenticated = 1
	}
	ch <- prometheus.MustNewConstMetric(c.authenticated, prometheus.GaugeValue, authenticated)
	ch <- prometheus.MustNewConstMetric(c.expiresIn, prometheus.GaugeValue, c.state.ExpiresIn().Seconds())
}
