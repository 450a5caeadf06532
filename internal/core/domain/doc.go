// Package domain defines the core domain models for chartered-cli.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Session: the client's cached proof of authentication
//   - Errors: coded error definitions shared by every layer
package domain
