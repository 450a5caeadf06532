// Package main provides the entry point for chartered-cli.
//
// The CLI signs in to a chartered registry and manages the resulting
// session:
//
//   - Password and OAuth login, logout and registration
//   - Session status, extension and keepalive
//   - Authenticated requests against the registry web API
//   - Configuration inspection
//
// Usage:
//
//	chartered-cli [command] [flags]
//	chartered-cli login -u alice
//	chartered-cli session status -o json
//	chartered-cli shell
//
// The CLI supports both single-command mode and interactive shell mode.
package main
