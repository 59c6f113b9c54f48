package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"candorbox/pkg/logger"
)

var db *pebble.DB

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by insert-if-absent operations when the row
// already exists. Callers translate it into a user-facing error.
var ErrConflict = errors.New("already exists")

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "err", err)
		return err
	}
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func ensureOpen() error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	return nil
}

// get returns a copy of the value at key, ErrNotFound when absent.
func get(key string) ([]byte, error) {
	if err := ensureOpen(); err != nil {
		return nil, err
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func set(key string, val []byte) error {
	if err := ensureOpen(); err != nil {
		return err
	}
	return db.Set([]byte(key), val, pebble.Sync)
}

// insertIfAbsent writes key only when it does not exist yet. The caller
// must hold the lock for the key's scope; pebble itself has no
// conditional write, so the existence check and the set must not race.
func insertIfAbsent(key string, val []byte) error {
	if err := ensureOpen(); err != nil {
		return err
	}
	if _, err := get(key); err == nil {
		return ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return db.Set([]byte(key), val, pebble.Sync)
}

// countPrefix counts keys under the given prefix.
func countPrefix(prefix string) (int, error) {
	if err := ensureOpen(); err != nil {
		return 0, err
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// scanPrefix invokes fn for every key/value under prefix. Values are
// copied before the callback runs.
func scanPrefix(prefix string, fn func(key string, val []byte) error) error {
	if err := ensureOpen(); err != nil {
		return err
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		if err := fn(string(iter.Key()), v); err != nil {
			return err
		}
	}
	return iter.Error()
}

// upperBound returns the smallest key greater than every key with the
// given prefix.
func upperBound(prefix string) []byte {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return b[:i+1]
		}
	}
	return nil
}
