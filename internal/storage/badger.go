// Package storage provides client-side key-value storage.
package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"
)

// badgerValueLogFileSize keeps the value log small; the session store
// holds a handful of tiny records.
const badgerValueLogFileSize = 16 << 20

// BadgerEngine implements KVEngine using Badger v3.
//
// Badger holds an exclusive directory lock, so only one process can use
// a given directory at a time.
type BadgerEngine struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewBadgerEngine opens (or creates) a Badger database in dir.
func NewBadgerEngine(dir string, logger *slog.Logger) (*BadgerEngine, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = true
	opts.NumVersionsToKeep = 1
	opts.ValueLogFileSize = badgerValueLogFileSize

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	logger.Debug("badger engine opened", "dir", dir)

	return &BadgerEngine{db: db, logger: logger}, nil
}

// Get retrieves a value by key.
func (e *BadgerEngine) Get(key string) ([]byte, error) {
	var value []byte

	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, ErrClosed
	}
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores a key-value pair.
func (e *BadgerEngine) Set(key string, value []byte) error {
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// Delete removes a key.
func (e *BadgerEngine) Delete(key string) error {
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// Close runs a final value log GC pass and closes the database.
func (e *BadgerEngine) Close() error {
	if err := e.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		e.logger.Debug("badger gc skipped", "error", err)
	}

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	e.logger.Debug("badger engine closed")
	return nil
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
