// Package storage provides the key-value persistence used by the roster
// stores: raw blob backends (file directory, SQLite, memory) and an Adapter
// that moves JSON values in and out of them without ever failing loudly.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Backend kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

// Sentinel errors returned by backends.
var (
	// ErrNotFound indicates the key has never been written or was deleted.
	ErrNotFound = errors.New("storage: key not found")

	// ErrQuotaExceeded indicates a write would push the store over its byte quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")

	// ErrInvalidKey indicates an empty key.
	ErrInvalidKey = errors.New("storage: invalid key")

	// ErrUnknownBackend indicates Open was asked for a kind it does not know.
	ErrUnknownBackend = errors.New("storage: unknown backend")
)

// Backend is a flat key-value store of raw blobs, the server-side stand-in
// for browser local storage.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

// Open creates the backend of the given kind. File backends live in dataDir,
// SQLite backends in dataDir/roster.db. A quota of zero disables the limit.
func Open(kind, dataDir string, quota int64) (Backend, error) {
	switch kind {
	case KindFile, "":
		return NewFileBackend(dataDir, quota)
	case KindSQLite:
		if err := os.MkdirAll(dataDir, DirPermissions); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return OpenSQLite(filepath.Join(dataDir, SQLiteFile), quota)
	case KindMemory:
		return NewMemoryBackend(quota), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}
