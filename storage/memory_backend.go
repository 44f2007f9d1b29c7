package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt int64
}

// MemoryBackend is the weakest link of the chain: a plain in-process
// map. Every fallback write is duplicated here for synchronous-style
// reads within one process lifetime. It does not survive a restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Probe(ctx context.Context) error { return nil }

func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	entry, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return nil, ErrKeyNotFound
	}
	if entry.expiresAt > 0 && time.Now().UnixMilli() > entry.expiresAt {
		b.mu.Lock()
		delete(b.entries, key)
		b.mu.Unlock()
		return nil, ErrKeyNotFound
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().UnixMilli() + ttl.Milliseconds()
	}

	b.mu.Lock()
	b.entries[key] = memoryEntry{value: stored, expiresAt: expiresAt}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []string
	for key := range b.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
