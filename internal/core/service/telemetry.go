package service

import (
	"github.com/yndnr/chartered-cli/internal/telemetry/logger"
	"github.com/yndnr/chartered-cli/internal/telemetry/metric"
)

// Telemetry carries the logger and metrics shared by the components
// that talk to the backend. Zero fields fall back to the globals.
type Telemetry struct {
	Logger  logger.Logger
	Metrics *metric.Registry
}

func (t Telemetry) withDefaults() Telemetry {
	if t.Logger == nil {
		t.Logger = logger.Default()
	}
	if t.Metrics == nil {
		t.Metrics = metric.Global()
	}
	return t
}
