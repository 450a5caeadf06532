package config

import (
	"github.com/yndnr/chartered-cli/internal/infra/confloader"
)

// Load builds the effective configuration: defaults, then the file at
// path (DefaultConfigPath when empty), then CHARTERED_ environment
// variables, then overrides keyed by dotted path ("server.url"). A
// missing config file is not an error.
func Load(path string, overrides map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	l := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOptionalFile(),
		confloader.WithOverrides(overrides),
	)
	if err := l.Load(cfg); err != nil {
		return nil, err
	}

	cfg.Server.CAFile = ExpandHome(cfg.Server.CAFile)
	cfg.Server.ClientCert = ExpandHome(cfg.Server.ClientCert)
	cfg.Server.ClientKey = ExpandHome(cfg.Server.ClientKey)

	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
