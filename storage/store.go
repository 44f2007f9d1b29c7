package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"busflow/models"
	"busflow/monitoring"
)

const (
	sessionKeyPrefix = "flow_sessions:"
	pointerKeyPrefix = "active_session:"
	// Logical key a whole session occupies inside the fallback store.
	fallbackSessionField = "session"
	fallbackPointerField = "active_pointer"
)

// SessionStore is the storage contract the flow session manager
// consumes. Every backend failure is absorbed here and surfaces as a
// false/nil result: callers decide policy, they never see exceptions
// from a storage call.
type SessionStore struct {
	primary  Backend
	fallback *FallbackStore
	monitor  *monitoring.Monitor
}

func NewSessionStore(primary Backend, fallback *FallbackStore, monitor *monitoring.Monitor) *SessionStore {
	return &SessionStore{
		primary:  primary,
		fallback: fallback,
		monitor:  monitor,
	}
}

func sessionStorageKey(sessionID string) string {
	return fmt.Sprintf("%s%s", sessionKeyPrefix, sessionID)
}

func pointerStorageKey(userID string) string {
	return fmt.Sprintf("%s%s", pointerKeyPrefix, userID)
}

func (s *SessionStore) StoreSession(ctx context.Context, session *models.Session) bool {
	data, err := json.Marshal(session)
	if err != nil {
		slog.Error("Failed to marshal session", "error", err, "session_id", session.SessionID)
		return false
	}

	if err := s.primary.Set(ctx, sessionStorageKey(session.SessionID), data, 0); err != nil {
		s.monitor.TrackStorageFallback("store_session")
		if err := s.fallback.Set(ctx, session.SessionID, fallbackSessionField, data, 0); err != nil {
			slog.Error("All storage backends rejected session", "error", err, "session_id", session.SessionID)
			return false
		}
	}
	return true
}

// GetSession looks a session up in the primary backend, chaining into
// the fallback store on failure or miss. A session found only in the
// fallback is promoted back into the primary backend.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) *models.Session {
	data, err := s.primary.Get(ctx, sessionStorageKey(sessionID))
	if err != nil {
		if err != ErrKeyNotFound {
			s.monitor.TrackStorageFallback("get_session")
		}
		data, err = s.fallback.Get(ctx, sessionID, fallbackSessionField)
		if err != nil {
			return nil
		}
		// Promote so subsequent reads hit the primary path again.
		_ = s.primary.Set(ctx, sessionStorageKey(sessionID), data, 0)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		slog.Error("Corrupt session record", "error", err, "session_id", sessionID)
		return nil
	}
	if session.FlowData == nil {
		session.FlowData = make(map[string]models.StepRecord)
	}
	return &session
}

// UpdateSession applies patch to an existing session and bumps
// LastUpdated. It returns false when the session does not exist; it
// never creates one.
func (s *SessionStore) UpdateSession(ctx context.Context, sessionID string, patch func(*models.Session)) bool {
	session := s.GetSession(ctx, sessionID)
	if session == nil {
		return false
	}

	patch(session)
	session.LastUpdated = time.Now().UnixMilli()
	return s.StoreSession(ctx, session)
}

func (s *SessionStore) StoreFlowStep(ctx context.Context, sessionID string, record models.StepRecord) bool {
	return s.UpdateSession(ctx, sessionID, func(session *models.Session) {
		// Whole-record replace: no merging of step data.
		session.FlowData[record.StepID] = record
	})
}

func (s *SessionStore) GetFlowStep(ctx context.Context, sessionID, stepID string) *models.StepRecord {
	session := s.GetSession(ctx, sessionID)
	if session == nil {
		return nil
	}
	record, ok := session.FlowData[stepID]
	if !ok {
		return nil
	}
	return &record
}

// GetAllFlowSteps returns the session's step records ordered by write
// time. The order is for display and debugging, nothing downstream may
// depend on it.
func (s *SessionStore) GetAllFlowSteps(ctx context.Context, sessionID string) []models.StepRecord {
	session := s.GetSession(ctx, sessionID)
	if session == nil {
		return nil
	}

	records := make([]models.StepRecord, 0, len(session.FlowData))
	for _, record := range session.FlowData {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp == records[j].Timestamp {
			return records[i].StepID < records[j].StepID
		}
		return records[i].Timestamp < records[j].Timestamp
	})
	return records
}

func (s *SessionStore) ClearFlowStep(ctx context.Context, sessionID, stepID string) bool {
	return s.UpdateSession(ctx, sessionID, func(session *models.Session) {
		delete(session.FlowData, stepID)
	})
}

func (s *SessionStore) ClearSession(ctx context.Context, sessionID string) bool {
	primaryErr := s.primary.Delete(ctx, sessionStorageKey(sessionID))
	if primaryErr != nil {
		s.monitor.TrackStorageFallback("clear_session")
	}
	fallbackErr := s.fallback.ClearSession(ctx, sessionID)
	return primaryErr == nil || fallbackErr == nil
}

// SetActiveSession records which session the given user should resume.
func (s *SessionStore) SetActiveSession(ctx context.Context, userID, sessionID string) bool {
	if err := s.primary.Set(ctx, pointerStorageKey(userID), []byte(sessionID), 0); err != nil {
		s.monitor.TrackStorageFallback("set_active_session")
		return s.fallback.Set(ctx, userID, fallbackPointerField, []byte(sessionID), 0) == nil
	}
	return true
}

func (s *SessionStore) ActiveSession(ctx context.Context, userID string) string {
	data, err := s.primary.Get(ctx, pointerStorageKey(userID))
	if err != nil {
		if err != ErrKeyNotFound {
			s.monitor.TrackStorageFallback("active_session")
		}
		data, err = s.fallback.Get(ctx, userID, fallbackPointerField)
		if err != nil {
			return ""
		}
	}
	return string(data)
}

func (s *SessionStore) ClearActiveSession(ctx context.Context, userID string) bool {
	if err := s.primary.Delete(ctx, pointerStorageKey(userID)); err != nil {
		s.monitor.TrackStorageFallback("clear_active_session")
	}
	return s.fallback.Delete(ctx, userID, fallbackPointerField) == nil
}

// CleanupExpiredSessions removes sessions past the retention window
// regardless of completion state, then sweeps the fallback store. It
// returns how many sessions were removed from the primary backend.
func (s *SessionStore) CleanupExpiredSessions(ctx context.Context, retention time.Duration) int {
	removed := 0
	now := time.Now()

	keys, err := s.primary.Keys(ctx, sessionKeyPrefix)
	if err != nil {
		slog.Error("Session cleanup could not list keys", "error", err)
	}
	for _, key := range keys {
		sessionID := key[len(sessionKeyPrefix):]
		session := s.GetSession(ctx, sessionID)
		if session == nil {
			continue
		}
		if session.Age(now) > retention {
			if s.ClearSession(ctx, sessionID) {
				removed++
			}
		}
	}

	s.fallback.Sweep(ctx, retention)
	return removed
}
