package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// fallbackRecord is the envelope every fallback write carries. A zero
// ExpiresAt means the record never expires from the read-side check;
// the retention sweep still applies to sessions.
type fallbackRecord struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt int64           `json:"expires_at,omitempty"`
	Timestamp int64           `json:"timestamp"`
	SessionID string          `json:"session_id"`
}

// FallbackStore serves session data when the preferred backend is
// unavailable. It chains the structured store first, then the simple
// in-process store, and duplicates every write into the weakest backend
// so reads stay cheap even while the structured store is degraded.
type FallbackStore struct {
	structured Backend
	simple     Backend
}

func NewFallbackStore(structured, simple Backend) *FallbackStore {
	return &FallbackStore{structured: structured, simple: simple}
}

func sessionKey(sessionID, key string) string {
	return fmt.Sprintf("session_%s:%s", sessionID, key)
}

func flatKey(sessionID, key string) string {
	return fmt.Sprintf("fallback_%s_%s", sessionID, key)
}

// Set writes through the chain. It succeeds when at least one backend
// accepted the record.
func (f *FallbackStore) Set(ctx context.Context, sessionID, key string, value []byte, ttl time.Duration) error {
	record := fallbackRecord{
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
		SessionID: sessionID,
	}
	if ttl > 0 {
		record.ExpiresAt = record.Timestamp + ttl.Milliseconds()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	structuredErr := f.structured.Set(ctx, sessionKey(sessionID, key), data, ttl)
	// Always duplicate into the weakest backend.
	simpleErr := f.simple.Set(ctx, flatKey(sessionID, key), data, ttl)

	if structuredErr != nil && simpleErr != nil {
		return structuredErr
	}
	return nil
}

func (f *FallbackStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	data, err := f.structured.Get(ctx, sessionKey(sessionID, key))
	if err != nil {
		// Both a failing structured store and a clean miss fall
		// through: Set acknowledges a write once either backend took
		// it, so the record may exist only as the flat duplicate.
		data, err = f.simple.Get(ctx, flatKey(sessionID, key))
	}
	if err != nil {
		return nil, err
	}

	var record fallbackRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}

	if record.ExpiresAt > 0 && time.Now().UnixMilli() > record.ExpiresAt {
		_ = f.Delete(ctx, sessionID, key)
		return nil, ErrKeyNotFound
	}

	return record.Value, nil
}

func (f *FallbackStore) Delete(ctx context.Context, sessionID, key string) error {
	structuredErr := f.structured.Delete(ctx, sessionKey(sessionID, key))
	simpleErr := f.simple.Delete(ctx, flatKey(sessionID, key))
	if structuredErr != nil {
		return structuredErr
	}
	return simpleErr
}

// SessionKeys lists the logical keys stored for one session. Both
// backends are consulted: a record acknowledged while the structured
// store rejected writes exists only as a flat duplicate.
func (f *FallbackStore) SessionKeys(ctx context.Context, sessionID string) ([]string, error) {
	seen := map[string]bool{}

	structuredPrefix := fmt.Sprintf("session_%s:", sessionID)
	structuredKeys, structuredErr := f.structured.Keys(ctx, structuredPrefix)
	for _, key := range structuredKeys {
		seen[key[len(structuredPrefix):]] = true
	}

	simplePrefix := fmt.Sprintf("fallback_%s_", sessionID)
	simpleKeys, simpleErr := f.simple.Keys(ctx, simplePrefix)
	for _, key := range simpleKeys {
		seen[key[len(simplePrefix):]] = true
	}

	if structuredErr != nil && simpleErr != nil {
		return nil, structuredErr
	}

	logical := make([]string, 0, len(seen))
	for key := range seen {
		logical = append(logical, key)
	}
	return logical, nil
}

// Sweep removes records whose write timestamp is older than maxAge.
// Records kept by the simple backend share the structured record's
// timestamp, so one pass over each backend suffices.
func (f *FallbackStore) Sweep(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	removed := 0

	for _, backend := range []Backend{f.structured, f.simple} {
		keys, err := backend.Keys(ctx, "")
		if err != nil {
			continue
		}
		for _, key := range keys {
			data, err := backend.Get(ctx, key)
			if err != nil {
				continue
			}
			var record fallbackRecord
			if err := json.Unmarshal(data, &record); err != nil {
				continue
			}
			if record.Timestamp < cutoff {
				if backend.Delete(ctx, key) == nil {
					removed++
				}
			}
		}
	}
	return removed
}

// ClearSession removes every record belonging to the session from both
// backends.
func (f *FallbackStore) ClearSession(ctx context.Context, sessionID string) error {
	keys, err := f.SessionKeys(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, key := range keys {
		_ = f.Delete(ctx, sessionID, key)
	}
	return nil
}
