package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busflow/models"
	"busflow/monitoring"
	"busflow/storage"
)

type failingBackend struct{}

func (failingBackend) Name() string                    { return "failing" }
func (failingBackend) Probe(ctx context.Context) error { return errors.New("backend down") }
func (failingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("backend down")
}
func (failingBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("backend down")
}
func (failingBackend) Delete(ctx context.Context, key string) error {
	return errors.New("backend down")
}
func (failingBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	return nil, errors.New("backend down")
}

func setupTestCache() (*ExpiringCache, *time.Time) {
	c := NewExpiringCache(storage.NewMemoryBackend(), monitoring.NewMonitor(), 0)

	now := time.Now()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestExpiringCache_FreshRoundTrip(t *testing.T) {
	c, _ := setupTestCache()

	city := models.CityEntry{ID: "11", Name: "تهران"}
	c.Set(KeySourceCityID, city, 100000*time.Second)

	var got models.CityEntry
	require.True(t, c.Get(KeySourceCityID, &got))
	assert.Equal(t, city, got)
}

func TestExpiringCache_ExpiryRoundTrip(t *testing.T) {
	c, now := setupTestCache()

	c.Set("k", "v", 1*time.Second)

	*now = now.Add(2 * time.Second)

	var got string
	assert.False(t, c.Get("k", &got), "expired entry must read as absent")

	// Eviction is idempotent: a second read is still absent.
	assert.False(t, c.Get("k", &got))
}

func TestExpiringCache_DefaultTTL(t *testing.T) {
	c, now := setupTestCache()

	c.Set("k", "v", 0)

	*now = now.Add(22 * time.Hour)
	var got string
	assert.True(t, c.Get("k", &got), "entry must survive below the 23h default")

	*now = now.Add(2 * time.Hour)
	assert.False(t, c.Get("k", &got))
}

func TestExpiringCache_ConfiguredDefaultTTL(t *testing.T) {
	c := NewExpiringCache(storage.NewMemoryBackend(), monitoring.NewMonitor(), time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v", 0)

	var got string
	require.True(t, c.Get("k", &got))

	now = now.Add(2 * time.Minute)
	assert.False(t, c.Get("k", &got), "the configured window overrides the built-in default")
}

func TestExpiringCache_RemoveThenGet(t *testing.T) {
	c, _ := setupTestCache()

	c.Set("k", "v", time.Hour)
	c.Remove("k")

	var got string
	assert.False(t, c.Get("k", &got))
}

func TestExpiringCache_IndependentExpiry(t *testing.T) {
	c, now := setupTestCache()

	c.Set(KeySourceCityID, "11", 1*time.Second)
	c.Set(KeyDestinationCityID, "22", time.Hour)

	*now = now.Add(10 * time.Second)

	var got string
	assert.False(t, c.Get(KeySourceCityID, &got), "source may expire alone")
	require.True(t, c.Get(KeyDestinationCityID, &got))
	assert.Equal(t, "22", got)
}

func TestExpiringCache_Cleanup(t *testing.T) {
	c, now := setupTestCache()

	c.Set("a", 1, 1*time.Second)
	c.Set("b", 2, 1*time.Second)
	c.Set("c", 3, time.Hour)

	*now = now.Add(5 * time.Second)

	assert.Equal(t, 2, c.Cleanup())

	var got int
	assert.False(t, c.Get("a", &got))
	assert.False(t, c.Get("b", &got))
	assert.True(t, c.Get("c", &got))
}

func TestExpiringCache_TimeRemaining(t *testing.T) {
	c, now := setupTestCache()

	c.Set("k", "v", 90*time.Second)

	expired, remaining := c.TimeRemaining("k")
	assert.False(t, expired)
	assert.Equal(t, int64(90), remaining)

	*now = now.Add(2 * time.Minute)
	expired, remaining = c.TimeRemaining("k")
	assert.True(t, expired)
	assert.Zero(t, remaining)

	expired, remaining = c.TimeRemaining("never_set")
	assert.True(t, expired)
	assert.Zero(t, remaining)
}

func TestExpiringCache_SurvivesRestart(t *testing.T) {
	backend := storage.NewMemoryBackend()
	monitor := monitoring.NewMonitor()

	first := NewExpiringCache(backend, monitor, 0)
	first.Set(KeyTravelDate, "1404/06/15", time.Hour)

	// A new cache over the same backend simulates a process restart.
	second := NewExpiringCache(backend, monitor, 0)
	var got string
	require.True(t, second.Get(KeyTravelDate, &got))
	assert.Equal(t, "1404/06/15", got)
}

func TestExpiringCache_StorageFailureDegrades(t *testing.T) {
	c := NewExpiringCache(failingBackend{}, monitoring.NewMonitor(), 0)

	// Set keeps the value in memory even when persistence fails.
	c.Set("k", "v", time.Hour)

	var got string
	require.True(t, c.Get("k", &got))
	assert.Equal(t, "v", got)

	// A cold cache over a failing backend reads as absent, not an error.
	cold := NewExpiringCache(failingBackend{}, monitoring.NewMonitor(), 0)
	assert.False(t, cold.Get("k", &got))
	assert.NotPanics(t, func() { cold.Remove("k") })
}
