// Package token provides hashing utilities for bearer tokens.
package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintPrefix prefixes every fingerprint.
const FingerprintPrefix = "sha256:"

// fingerprintLength is the number of hex characters kept in a fingerprint.
const fingerprintLength = 12

// Hash computes the SHA-256 hash of a token.
//
// The returned hash is hex encoded.
func Hash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a short display identifier for a token.
// The token cannot be recovered from it.
func Fingerprint(token string) string {
	return FingerprintPrefix + Hash(token)[:fingerprintLength]
}
