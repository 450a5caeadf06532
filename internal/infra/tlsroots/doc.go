// Package tlsroots builds the TLS configuration the gateway dials with.
//
//   - roots.go: System roots plus a private CA (file or directory)
//   - watcher.go: Client certificate that reloads when rotated on disk
//
// A long-running shell keeps working after a certificate rotation
// without a restart.
package tlsroots
