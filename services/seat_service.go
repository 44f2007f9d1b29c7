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

const seatLayoutKeyPrefix = "seat_layout:"

// SeatService keeps the seat-layout scratch state for a session: which
// seats the user has picked while the seat map is open. Reloading the
// seat-selection step restores the in-progress selection from here.
type SeatService struct {
	backend storage.Backend
}

func NewSeatService(backend storage.Backend) *SeatService {
	return &SeatService{backend: backend}
}

func seatLayoutKey(sessionID string) string {
	return fmt.Sprintf("%s%s", seatLayoutKeyPrefix, sessionID)
}

// SelectSeats replaces the session's seat selection.
func (s *SeatService) SelectSeats(ctx context.Context, sessionID string, seats []models.SeatSelection) bool {
	now := time.Now().UnixMilli()
	for i := range seats {
		seats[i].SessionID = sessionID
		seats[i].Timestamp = now
	}

	data, err := json.Marshal(seats)
	if err != nil {
		return false
	}
	if err := s.backend.Set(ctx, seatLayoutKey(sessionID), data, 0); err != nil {
		slog.Error("Failed to store seat selection", "error", err, "session_id", sessionID)
		return false
	}
	return true
}

func (s *SeatService) SelectedSeats(ctx context.Context, sessionID string) []models.SeatSelection {
	data, err := s.backend.Get(ctx, seatLayoutKey(sessionID))
	if err != nil {
		return nil
	}

	var seats []models.SeatSelection
	if err := json.Unmarshal(data, &seats); err != nil {
		return nil
	}

	filtered := seats[:0]
	for _, seat := range seats {
		if seat.SessionID == sessionID {
			filtered = append(filtered, seat)
		}
	}
	return filtered
}

func (s *SeatService) ClearSeats(ctx context.Context, sessionID string) bool {
	return s.backend.Delete(ctx, seatLayoutKey(sessionID)) == nil
}
