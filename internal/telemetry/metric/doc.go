// Package metric provides Prometheus metrics for chartered-cli.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//   - collector.go: scrape-time collector for the current session
//
// Metrics include:
//
//   - Login attempts by method and result
//   - Session extension results
//   - Gateway request counts and latency
//   - Forced logouts caused by server-side invalidation
//
// Metrics are exposed at /metrics while a long-running command
// (shell, session keepalive) is active and metrics.address is set.
package metric
