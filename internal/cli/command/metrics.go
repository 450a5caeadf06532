package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/yndnr/chartered-cli/internal/telemetry/logger"
	"github.com/yndnr/chartered-cli/internal/telemetry/metric"
)

const metricsPath = "/metrics"

// metricsServer exposes the runtime's registry while a long-running
// command is active.
type metricsServer struct {
	httpServer *http.Server
	listener   net.Listener
}

// serveMetrics listens on addr and serves /metrics in the background.
func serveMetrics(addr string, reg *metric.Registry, log logger.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, reg.Handler())

	s := &metricsServer{
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", "error", err)
		}
	}()
	log.Debug("serving metrics", "address", ln.Addr().String())
	return s, nil
}

// URL returns the metrics endpoint address.
func (s *metricsServer) URL() string {
	return "http://" + s.listener.Addr().String() + metricsPath
}

// Shutdown gracefully shuts down the server.
func (s *metricsServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
