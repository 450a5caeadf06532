// Package token provides hashing utilities for bearer tokens.
//
// Bearer tokens are opaque secrets and are never printed or logged.
// When a token has to be identified (status output, log correlation),
// a fingerprint derived from its SHA-256 hash is used instead:
//
//   - Hash: 64 characters of hex-encoded SHA-256
//   - Fingerprint: "sha256:" followed by the first 12 hex characters
package token
