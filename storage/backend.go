package storage

import (
	"context"
	"errors"
	"log"
	"time"
)

var ErrKeyNotFound = errors.New("storage: key not found")

// Backend is one durable key-value backend. Implementations report a
// missing key as ErrKeyNotFound and anything else as a backend failure.
type Backend interface {
	Name() string
	// Probe checks whether the backend is usable right now.
	Probe(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Keys lists all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Resolve picks the first backend whose probe passes. When none pass it
// returns the last one so callers still have something to degrade
// against; every operation on it will keep failing and be converted to
// an absent result at the store boundary.
func Resolve(ctx context.Context, backends ...Backend) Backend {
	for _, b := range backends {
		if err := b.Probe(ctx); err != nil {
			log.Printf("storage: backend %s unavailable: %v", b.Name(), err)
			continue
		}
		return b
	}
	return backends[len(backends)-1]
}
