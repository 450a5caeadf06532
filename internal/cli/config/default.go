package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultServerURL         = "http://127.0.0.1:8888"
	DefaultTimeout           = 30 * time.Second
	DefaultBurst             = 5
	DefaultExtensionInterval = 60 * time.Second

	DefaultEngine = "file"

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"

	DefaultOutput = "table"

	dirName         = ".chartered"
	configFileName  = "config.yaml"
	sessionFileName = "session.json"
	badgerDirName   = "session.db"
	historyFileName = "history"
)

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: ServerSection{
			URL: DefaultServerURL,
		},
		Gateway: GatewaySection{
			Timeout: DefaultTimeout,
			Burst:   DefaultBurst,
		},
		Extension: ExtensionSection{
			Interval: DefaultExtensionInterval,
		},
		Storage: StorageSection{
			Engine: DefaultEngine,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Output: DefaultOutput,
	}
}

// Dir returns ~/.chartered, or .chartered when the home directory is
// unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), configFileName)
}

// HistoryPath returns the shell history file path.
func HistoryPath() string {
	return filepath.Join(Dir(), historyFileName)
}

// StoragePath returns the configured storage path with ~ expanded, or
// the engine's default location.
func (c *CLIConfig) StoragePath() string {
	if c.Storage.Path != "" {
		return ExpandHome(c.Storage.Path)
	}
	if c.Storage.Engine == "badger" {
		return filepath.Join(Dir(), badgerDirName)
	}
	return filepath.Join(Dir(), sessionFileName)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
