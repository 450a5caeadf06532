// Package service holds the session lifecycle of chartered-cli.
//
// This package contains:
//
//   - SessionPersistence: session record codec over a storage.KVEngine
//   - AuthStore: the single in-memory holder of the current session
//   - LoginFlow: password and OAuth handshakes, logout and registration
//   - ExtensionScheduler: periodic renewal while a session is held
//   - SessionSync: re-hydration when another process changes the record
//
// AuthStore.Replace is the only way the held session changes. Every
// change is persisted and announced to subscribers before Replace
// returns; the scheduler is one of those subscribers.
package service
