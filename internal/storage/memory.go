package storage

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend is a process-local map, used by tests and `--backend memory`.
type MemoryBackend struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int64
}

// NewMemoryBackend returns an empty store. A quota of zero disables the limit.
func NewMemoryBackend(quota int64) *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte), quota: quota}
}

func (b *MemoryBackend) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *MemoryBackend) Set(key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.quota > 0 {
		var used int64
		for k, v := range b.data {
			if k != key {
				used += int64(len(v))
			}
		}
		if used+int64(len(value)) > b.quota {
			return fmt.Errorf("%w: %d of %d bytes in use", ErrQuotaExceeded, used, b.quota)
		}
	}

	v := make([]byte, len(value))
	copy(v, value)
	b.data[key] = v
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

func (b *MemoryBackend) Keys() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
