package config

import "time"

// CLIConfig is the configuration for chartered-cli.
type CLIConfig struct {
	Server    ServerSection    `koanf:"server" json:"server" yaml:"server"`
	Gateway   GatewaySection   `koanf:"gateway" json:"gateway" yaml:"gateway"`
	Extension ExtensionSection `koanf:"extension" json:"extension" yaml:"extension"`
	Storage   StorageSection   `koanf:"storage" json:"storage" yaml:"storage"`
	Log       LogSection       `koanf:"log" json:"log" yaml:"log"`
	Metrics   MetricsSection   `koanf:"metrics" json:"metrics" yaml:"metrics"`

	// Output is the default result format: table, json or yaml.
	Output string `koanf:"output" json:"output" yaml:"output"`
}

// ServerSection locates the registry backend.
type ServerSection struct {
	// URL is the web base address, e.g. http://127.0.0.1:8888.
	URL string `koanf:"url" json:"url" yaml:"url"`

	// CAFile is an optional PEM bundle for a private CA.
	CAFile string `koanf:"ca_file" json:"ca_file" yaml:"ca_file"`

	// ClientCert and ClientKey enable mutual TLS. Both or neither.
	ClientCert string `koanf:"client_cert" json:"client_cert" yaml:"client_cert"`
	ClientKey  string `koanf:"client_key" json:"client_key" yaml:"client_key"`
}

// GatewaySection tunes outbound requests.
type GatewaySection struct {
	Timeout   time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
	RateLimit float64       `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"` // requests/s, 0 = unlimited
	Burst     int           `koanf:"burst" json:"burst" yaml:"burst"`
}

// ExtensionSection configures session renewal.
type ExtensionSection struct {
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`
}

// StorageSection selects where the session record is kept.
type StorageSection struct {
	// Engine is file, badger or memory.
	Engine string `koanf:"engine" json:"engine" yaml:"engine"`

	// Path is the session file (file) or directory (badger). Empty
	// selects the engine's default under ~/.chartered.
	Path string `koanf:"path" json:"path" yaml:"path"`

	// EncryptionPassphrase seals the record at rest when set.
	EncryptionPassphrase string `koanf:"encryption_passphrase" json:"encryption_passphrase" yaml:"encryption_passphrase"`
}

// LogSection configures diagnostics on stderr.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}

// MetricsSection configures the Prometheus endpoint served by
// long-running commands.
type MetricsSection struct {
	// Address is host:port; empty disables the endpoint.
	Address string `koanf:"address" json:"address" yaml:"address"`
}
