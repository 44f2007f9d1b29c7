package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busflow/models"
	"busflow/storage"
)

func TestPassengerService_ReplaceSet(t *testing.T) {
	s := NewPassengerService(storage.NewMemoryBackend())
	ctx := context.Background()

	require.True(t, s.AddPassengers(ctx, "s-1", []models.Passenger{
		{ID: "p1", Name: "علی", Family: "رضایی", Gender: models.GenderMale},
		{ID: "p2", Name: "مریم", Family: "رضایی", Gender: models.GenderFemale},
	}))

	require.True(t, s.AddPassengers(ctx, "s-1", []models.Passenger{
		{ID: "p3", Name: "سارا", Family: "کریمی", Gender: models.GenderFemale},
	}))

	got := s.GetPassengers(ctx, "s-1")
	require.Len(t, got, 1, "submit replaces the whole set")
	assert.Equal(t, "p3", got[0].ID)
	assert.Equal(t, "s-1", got[0].SessionID)
	assert.NotZero(t, got[0].Timestamp)
}

func TestPassengerService_SessionIsolation(t *testing.T) {
	s := NewPassengerService(storage.NewMemoryBackend())
	ctx := context.Background()

	require.True(t, s.AddPassengers(ctx, "s-1", []models.Passenger{{ID: "p1"}}))
	require.True(t, s.AddPassengers(ctx, "s-2", []models.Passenger{{ID: "p1"}, {ID: "p2"}}))

	assert.Len(t, s.GetPassengers(ctx, "s-1"), 1)
	assert.Len(t, s.GetPassengers(ctx, "s-2"), 2, "same passenger id under another session is a distinct record")
	assert.Nil(t, s.GetPassengers(ctx, "s-3"))
}

func TestPassengerService_ClearPassengers(t *testing.T) {
	s := NewPassengerService(storage.NewMemoryBackend())
	ctx := context.Background()

	require.True(t, s.AddPassengers(ctx, "s-1", []models.Passenger{{ID: "p1"}}))
	require.True(t, s.ClearPassengers(ctx, "s-1"))
	assert.Nil(t, s.GetPassengers(ctx, "s-1"))
}

func TestPassengerService_CleanupOldSessions(t *testing.T) {
	backend := storage.NewMemoryBackend()
	s := NewPassengerService(backend)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour).UnixMilli()
	stale, err := json.Marshal([]models.Passenger{{ID: "p1", SessionID: "s-old", Timestamp: old}})
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, "passengers:s-old", stale, 0))

	staleCurrent, err := json.Marshal([]models.Passenger{{ID: "p2", SessionID: "s-current", Timestamp: old}})
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, "passengers:s-current", staleCurrent, 0))

	require.True(t, s.AddPassengers(ctx, "s-fresh", []models.Passenger{{ID: "p3"}}))

	removed := s.CleanupOldSessions(ctx, "s-current", 30*time.Minute)
	assert.Equal(t, 1, removed)

	assert.Nil(t, s.GetPassengers(ctx, "s-old"))
	assert.Len(t, s.GetPassengers(ctx, "s-current"), 1, "the live session is never reaped, whatever its age")
	assert.Len(t, s.GetPassengers(ctx, "s-fresh"), 1)
}

func TestSeatService_RoundTrip(t *testing.T) {
	s := NewSeatService(storage.NewMemoryBackend())
	ctx := context.Background()

	require.True(t, s.SelectSeats(ctx, "s-1", []models.SeatSelection{
		{SeatID: "seat-12", SeatNo: 12, Gender: models.GenderMale},
		{SeatID: "seat-13", SeatNo: 13, Gender: models.GenderFemale},
	}))

	got := s.SelectedSeats(ctx, "s-1")
	require.Len(t, got, 2)
	assert.Equal(t, 12, got[0].SeatNo)
	assert.Equal(t, "s-1", got[0].SessionID)

	assert.Nil(t, s.SelectedSeats(ctx, "s-2"))

	require.True(t, s.ClearSeats(ctx, "s-1"))
	assert.Nil(t, s.SelectedSeats(ctx, "s-1"))
}
