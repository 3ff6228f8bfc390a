package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File layout constants
const (
	FileSuffix      = ".json"
	BackupSuffix    = ".backup"
	TmpSuffix       = ".tmp"
	FilePermissions = 0644
	DirPermissions  = 0755
)

// FileBackend stores every key as <escaped key>.json inside one directory.
// Writes go to a tmp file first and are renamed into place; the previous
// version is kept next to it with BackupSuffix.
type FileBackend struct {
	mu    sync.RWMutex
	dir   string
	quota int64
}

// NewFileBackend creates the data directory if needed.
func NewFileBackend(dir string, quota int64) (*FileBackend, error) {
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileBackend{dir: dir, quota: quota}, nil
}

// Dir returns the data directory.
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, url.PathEscape(key)+FileSuffix)
}

// Get reads the current value of key.
func (b *FileBackend) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set writes value under key, keeping the previous version as a backup.
func (b *FileBackend) Set(key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.quota > 0 {
		used, err := b.usageLocked(key)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > b.quota {
			return fmt.Errorf("%w: %d of %d bytes in use", ErrQuotaExceeded, used, b.quota)
		}
	}

	target := b.path(key)

	// Write to temp file first
	tmpFile := target + TmpSuffix
	if err := os.WriteFile(tmpFile, value, FilePermissions); err != nil {
		return err
	}

	// Keep the previous version
	if _, err := os.Stat(target); err == nil {
		if err := os.Rename(target, target+BackupSuffix); err != nil {
			slog.Warn("failed to create backup", "key", key, "error", err)
		}
	}

	return os.Rename(tmpFile, target)
}

// Delete removes key. Deleting a missing key is not an error.
func (b *FileBackend) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Keys lists all stored keys. Backup and tmp files are not keys.
func (b *FileBackend) Keys() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, FileSuffix))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error {
	return nil
}

// usageLocked sums the sizes of all keys except skip (caller must hold lock).
func (b *FileBackend) usageLocked(skip string) (int64, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0, err
	}

	skipName := filepath.Base(b.path(skip))
	var total int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == skipName || !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}
