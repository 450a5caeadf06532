// Package adaptive provides authenticated encryption for small records
// kept at rest, such as the persisted session.
//
// The cipher is picked from the hardware: AES-GCM where Go has AES
// acceleration (amd64, arm64), ChaCha20-Poly1305 elsewhere. Keys are
// derived from a passphrase with argon2id.
//
// Ciphertext layout: nonce || sealed(plaintext) || tag.
package adaptive
