// Package opstore provides time-bounded key-value storage for serialized
// deletion snapshots, addressed by opaque operation id.
//
// Entries live until their retention window elapses; an expired entry is
// indistinguishable from one that never existed. Three backends implement
// the same contract: an in-process map, a SQLite table, and a Badger
// database with native TTL support.
package opstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports that a key is absent or its entry has expired.
// Callers cannot distinguish the two cases.
var ErrNotFound = errors.New("opstore: entry not found or expired")

// Store holds snapshot payloads under their operation key for a bounded
// retention window.
type Store interface {
	// Put stores a payload under key, replacing any previous entry. The
	// entry expires ttl after the write.
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Get returns the payload stored under key, or ErrNotFound if the key
	// is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the entry under key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Backend names one of the operation store implementations.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
)

// Open constructs the named backend. Path is the database file for sqlite,
// the data directory for badger, and ignored for memory.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendSQLite:
		if path == "" {
			return nil, fmt.Errorf("opstore: sqlite backend requires a path")
		}
		return NewSQLite(path)
	case BackendBadger:
		if path == "" {
			return nil, fmt.Errorf("opstore: badger backend requires a path")
		}
		return NewBadger(path)
	default:
		return nil, fmt.Errorf("opstore: unknown backend %q", backend)
	}
}
