package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"busflow/monitoring"
	"busflow/storage"
)

// Well-known keys for the short-lived search selections.
const (
	KeySourceCityID        = "sourceCityId"
	KeySourceCityName      = "sourceCityName"
	KeyDestinationCityID   = "destinationCityId"
	KeyDestinationCityName = "destinationCityName"
	KeyTravelDate          = "TravelDate"
)

const DefaultTTL = 23 * time.Hour

const persistPrefix = "expiring_cache:"

type entry struct {
	Value  json.RawMessage `json:"value"`
	Expiry int64           `json:"expiry"`
}

// ExpiringCache is a synchronous key-value cache where every entry
// carries its own absolute expiration deadline, checked lazily on read.
// Values are written through to a durable backend so they survive a
// restart; a backend failure degrades the cache to "value absent" and
// is never surfaced as an error.
type ExpiringCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	backend    storage.Backend
	monitor    *monitoring.Monitor
	defaultTTL time.Duration

	// now is swapped in tests to drive expiry.
	now func() time.Time
}

// NewExpiringCache builds the cache over backend. A zero defaultTTL
// falls back to DefaultTTL.
func NewExpiringCache(backend storage.Backend, monitor *monitoring.Monitor, defaultTTL time.Duration) *ExpiringCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &ExpiringCache{
		entries:    make(map[string]entry),
		backend:    backend,
		monitor:    monitor,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Set stores value under key with the given ttl. A zero ttl means the
// cache's default window.
func (c *ExpiringCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	e := entry{
		Value:  data,
		Expiry: c.now().Add(ttl).UnixMilli(),
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	c.persist(key, e, ttl)
}

// Get loads the value for key into out. It reports false for a key
// that was never set, has expired, or cannot be decoded. Reading an
// expired entry deletes it: eviction is lazy and idempotent.
func (c *ExpiringCache) Get(key string, out any) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		e, ok = c.load(key)
		if !ok {
			c.monitor.TrackCacheLookup("miss")
			return false
		}
		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
	}

	if c.now().UnixMilli() > e.Expiry {
		c.Remove(key)
		c.monitor.TrackCacheLookup("expired")
		return false
	}

	if err := json.Unmarshal(e.Value, out); err != nil {
		c.monitor.TrackCacheLookup("corrupt")
		return false
	}
	c.monitor.TrackCacheLookup("hit")
	return true
}

func (c *ExpiringCache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.backend.Delete(ctx, persistPrefix+key)
}

// Cleanup sweeps every tracked key, evicting the expired ones. This is
// the only place expiration is enforced eagerly.
func (c *ExpiringCache) Cleanup() int {
	now := c.now().UnixMilli()

	c.mu.Lock()
	var expired []string
	for key, e := range c.entries {
		if now > e.Expiry {
			expired = append(expired, key)
		}
	}
	c.mu.Unlock()

	for _, key := range expired {
		c.Remove(key)
	}
	return len(expired)
}

// TimeRemaining reports whether key has expired and, if not, how many
// whole seconds remain. An unknown key reads as expired with zero
// remaining.
func (c *ExpiringCache) TimeRemaining(key string) (expired bool, remainingSeconds int64) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		e, ok = c.load(key)
		if !ok {
			return true, 0
		}
	}

	remaining := e.Expiry - c.now().UnixMilli()
	if remaining <= 0 {
		return true, 0
	}
	return false, remaining / 1000
}

func (c *ExpiringCache) persist(key string, e entry, ttl time.Duration) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Best effort: a write failure only costs durability across restarts.
	_ = c.backend.Set(ctx, persistPrefix+key, data, ttl)
}

func (c *ExpiringCache) load(key string) (entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := c.backend.Get(ctx, persistPrefix+key)
	if err != nil {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, false
	}
	return e, true
}
