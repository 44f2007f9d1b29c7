package services

import (
	"context"
	"log/slog"
	"time"

	"busflow/cache"
	"busflow/storage"
)

// Maintenance runs the periodic sweeps: sessions past the retention
// window, stale passenger sets, and expired cache entries. It is the
// only place expiration is enforced in the background; everything else
// evicts lazily on access.
type Maintenance struct {
	store      *storage.SessionStore
	passengers *PassengerService
	cache      *cache.ExpiringCache

	interval        time.Duration
	retention       time.Duration
	passengerMaxAge time.Duration
}

func NewMaintenance(store *storage.SessionStore, passengers *PassengerService, c *cache.ExpiringCache, interval, retention, passengerMaxAge time.Duration) *Maintenance {
	return &Maintenance{
		store:           store,
		passengers:      passengers,
		cache:           c,
		interval:        interval,
		retention:       retention,
		passengerMaxAge: passengerMaxAge,
	}
}

// Run blocks until ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("Maintenance sweeper started", "interval", m.interval)

	for {
		select {
		case <-ticker.C:
			m.Sweep(ctx)
		case <-ctx.Done():
			slog.Info("Maintenance sweeper stopping")
			return
		}
	}
}

// Sweep performs one maintenance pass. No session is "current" from
// the sweeper's point of view, so only the age checks protect records.
func (m *Maintenance) Sweep(ctx context.Context) {
	sessions := m.store.CleanupExpiredSessions(ctx, m.retention)
	passengers := m.passengers.CleanupOldSessions(ctx, "", m.passengerMaxAge)
	entries := m.cache.Cleanup()

	if sessions > 0 || passengers > 0 || entries > 0 {
		slog.Info("Maintenance sweep removed stale records",
			"sessions", sessions,
			"passenger_sets", passengers,
			"cache_entries", entries,
		)
	}
}
