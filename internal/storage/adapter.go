package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
)

// Adapter serializes values to JSON and stores them in a Backend.
// Failures are logged and reported as false; nothing is returned as an error
// and nothing panics, so callers can degrade to defaults.
type Adapter struct {
	backend Backend
	logger  *slog.Logger
}

// NewAdapter wraps backend. A nil logger falls back to slog.Default().
func NewAdapter(backend Backend, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{backend: backend, logger: logger}
}

// Save writes value under key and reports whether the write succeeded.
func (a *Adapter) Save(key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Error("storage save failed: encode", "key", key, "error", err)
		return false
	}
	if err := a.backend.Set(key, data); err != nil {
		a.logger.Error("storage save failed", "key", key, "bytes", len(data), "error", err)
		return false
	}
	return true
}

// Load decodes the value under key into target. It returns false when the
// key is missing or its content is malformed; in the latter case target may
// be partially written, so callers decode into a fresh value (see LoadOr).
func (a *Adapter) Load(key string, target any) bool {
	data, err := a.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Error("storage load failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		a.logger.Warn("storage content malformed, using defaults", "key", key, "error", err)
		return false
	}
	return true
}

// Raw returns the stored bytes of key, if any.
func (a *Adapter) Raw(key string) ([]byte, bool) {
	data, err := a.backend.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Remove deletes key and reports success.
func (a *Adapter) Remove(key string) bool {
	if err := a.backend.Delete(key); err != nil {
		a.logger.Error("storage remove failed", "key", key, "error", err)
		return false
	}
	return true
}

// Cleanup removes every key starting with prefix except keep, reclaiming
// quota held by stale keys. It returns the number of keys removed.
func (a *Adapter) Cleanup(prefix, keep string) int {
	keys, err := a.backend.Keys()
	if err != nil {
		a.logger.Error("storage cleanup failed: list keys", "error", err)
		return 0
	}

	removed := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) || k == keep {
			continue
		}
		if a.Remove(k) {
			removed++
		}
	}
	if removed > 0 {
		a.logger.Debug("storage cleanup removed stale keys", "prefix", prefix, "count", removed)
	}
	return removed
}

// Loader is the read half of Adapter, accepted by LoadOr.
type Loader interface {
	Load(key string, target any) bool
}

// LoadOr decodes key into a fresh T, returning def when the key is missing
// or malformed.
func LoadOr[T any](l Loader, key string, def T) T {
	var v T
	if !l.Load(key, &v) {
		return def
	}
	return v
}
