package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"busflow/models"
	"busflow/storage"
)

const passengerKeyPrefix = "passengers:"

// PassengerService holds the session-scoped passenger scratch state.
// Records are keyed by session id so the same passenger may appear
// under different sessions without collision; reads never cross
// sessions.
type PassengerService struct {
	backend storage.Backend
}

func NewPassengerService(backend storage.Backend) *PassengerService {
	return &PassengerService{backend: backend}
}

func passengerKey(sessionID string) string {
	return fmt.Sprintf("%s%s", passengerKeyPrefix, sessionID)
}

// AddPassengers replaces the entire passenger set for the session.
// The purchase flow submits the whole passenger form at once, so this
// is delete-then-insert, not a per-item merge.
func (s *PassengerService) AddPassengers(ctx context.Context, sessionID string, passengers []models.Passenger) bool {
	now := time.Now().UnixMilli()
	for i := range passengers {
		passengers[i].SessionID = sessionID
		passengers[i].Timestamp = now
	}

	data, err := json.Marshal(passengers)
	if err != nil {
		return false
	}

	if err := s.backend.Delete(ctx, passengerKey(sessionID)); err != nil {
		slog.Error("Failed to clear previous passengers", "error", err, "session_id", sessionID)
	}
	if err := s.backend.Set(ctx, passengerKey(sessionID), data, 0); err != nil {
		slog.Error("Failed to store passengers", "error", err, "session_id", sessionID)
		return false
	}
	return true
}

// GetPassengers returns the passengers belonging to the session.
func (s *PassengerService) GetPassengers(ctx context.Context, sessionID string) []models.Passenger {
	data, err := s.backend.Get(ctx, passengerKey(sessionID))
	if err != nil {
		return nil
	}

	var passengers []models.Passenger
	if err := json.Unmarshal(data, &passengers); err != nil {
		return nil
	}

	// Records tagged with another session never leak.
	filtered := passengers[:0]
	for _, p := range passengers {
		if p.SessionID == sessionID {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func (s *PassengerService) ClearPassengers(ctx context.Context, sessionID string) bool {
	return s.backend.Delete(ctx, passengerKey(sessionID)) == nil
}

// CleanupOldSessions removes passenger sets whose session differs from
// the current one and whose newest record is older than maxAge.
// Current-session records are preserved unconditionally regardless of
// age.
func (s *PassengerService) CleanupOldSessions(ctx context.Context, currentSessionID string, maxAge time.Duration) int {
	keys, err := s.backend.Keys(ctx, passengerKeyPrefix)
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-maxAge).UnixMilli()
	removed := 0

	for _, key := range keys {
		sessionID := key[len(passengerKeyPrefix):]
		if sessionID == currentSessionID {
			continue
		}

		passengers := s.GetPassengers(ctx, sessionID)
		stale := true
		for _, p := range passengers {
			if p.Timestamp >= cutoff {
				stale = false
				break
			}
		}
		if stale {
			if s.backend.Delete(ctx, key) == nil {
				removed++
			}
		}
	}
	return removed
}
