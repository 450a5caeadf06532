// Package storage provides the durable client-side key-value storage
// used to keep the session record between runs.
//
// Engines:
//
//   - file: a single JSON document, written atomically; the default.
//     Several processes can share it, like browser local storage.
//   - badger: an embedded Badger v3 database in a directory.
//   - memory: process-local, nothing survives exit.
//
// All engines are synchronous and safe for concurrent use.
package storage
