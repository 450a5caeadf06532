package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for
// `config show` and debug logs.
func Sanitize(cfg *CLIConfig) *CLIConfig {
	sanitized := *cfg

	if sanitized.Storage.EncryptionPassphrase != "" {
		sanitized.Storage.EncryptionPassphrase = maskSecret(sanitized.Storage.EncryptionPassphrase)
	}

	return &sanitized
}

// maskSecret masks a secret value for display.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
