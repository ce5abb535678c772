package store

import (
	"bytes"
	"errors"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v3"

	"github.com/apibillme/biller/internal/metrics"
)

// Config carries the dependencies for opening a Cell.
type Config struct {
	Logger    *slog.Logger
	Directory string
}

// Cell is the durable single-slot store backing the live record.
// It wraps an embedded BadgerDB instance and exposes only what the
// write path needs: get, compare-and-swap, and flush. The CAS is the
// sole serialization point for record mutation.
type Cell struct {
	logger *slog.Logger
	db     *badger.DB
}

// Open opens (or creates) the store at the configured directory.
func Open(cfg Config) (*Cell, error) {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, &ErrInternal{Err: err}
	}

	opts := badger.DefaultOptions(cfg.Directory).
		WithLogger(newLogger(cfg.Logger.WithGroup("badger"))).
		WithLoggingLevel(badger.WARNING).
		WithMemTableSize(16 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &ErrInternal{Err: err}
	}

	return &Cell{
		logger: cfg.Logger.WithGroup("cell"),
		db:     db,
	}, nil
}

// Get returns the current bytes stored under key.
// Returns *ErrKeyNotFound if the key has never been written.
func (c *Cell) Get(key string) ([]byte, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &ErrKeyNotFound{Key: key}
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		if value == nil {
			// an empty record is a present record; nil means absent
			value = []byte{}
		}
		return err
	})
	if err != nil {
		metrics.StoreOpsTotal.WithLabelValues("get", "error").Inc()
		return nil, translate(err)
	}
	metrics.StoreOpsTotal.WithLabelValues("get", "ok").Inc()
	return value, nil
}

// CompareAndSwap replaces the value under key with newValue only if the
// current value equals oldValue. A nil oldValue means the key is expected
// to be absent. Returns *ErrCASFailed when the comparison does not hold;
// the store is left unchanged in that case.
func (c *Cell) CompareAndSwap(key string, oldValue, newValue []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if oldValue != nil {
				return &ErrCASFailed{Key: key}
			}
		case err != nil:
			return err
		default:
			current, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if oldValue == nil || !bytes.Equal(current, oldValue) {
				return &ErrCASFailed{Key: key}
			}
		}
		return txn.Set([]byte(key), newValue)
	})
	if errors.Is(err, badger.ErrConflict) {
		// a concurrently committed write means the observed old value is stale
		err = &ErrCASFailed{Key: key}
	}
	if err != nil {
		metrics.StoreOpsTotal.WithLabelValues("cas", "error").Inc()
		return translate(err)
	}
	metrics.StoreOpsTotal.WithLabelValues("cas", "ok").Inc()
	return nil
}

// Flush syncs all pending writes to disk.
func (c *Cell) Flush() error {
	if err := c.db.Sync(); err != nil {
		metrics.StoreOpsTotal.WithLabelValues("flush", "error").Inc()
		return &ErrInternal{Err: err}
	}
	metrics.StoreOpsTotal.WithLabelValues("flush", "ok").Inc()
	return nil
}

// Init seeds the key with an empty value if it does not exist yet, then
// flushes. Idempotent across restarts: an already-initialized key is
// left untouched.
func (c *Cell) Init(key string) error {
	err := c.CompareAndSwap(key, nil, []byte{})
	var casErr *ErrCASFailed
	if err != nil && !errors.As(err, &casErr) {
		return err
	}
	return c.Flush()
}

// Close closes the underlying store.
func (c *Cell) Close() error {
	if err := c.db.Close(); err != nil {
		return &ErrInternal{Err: err}
	}
	c.logger.Info("store closed")
	return nil
}

// translate keeps typed store errors intact and wraps everything else.
func translate(err error) error {
	var notFound *ErrKeyNotFound
	var casFailed *ErrCASFailed
	if errors.As(err, &notFound) || errors.As(err, &casFailed) {
		return err
	}
	return &ErrInternal{Err: err}
}
