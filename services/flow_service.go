package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"busflow/auth"
	"busflow/internal/status"
	"busflow/models"
	"busflow/monitoring"
	"busflow/notify"
	"busflow/storage"
	"busflow/utils"
)

// FlowService owns the purchase-flow state machine: session identity,
// the current step pointer, step data records and lifecycle
// transitions. It is constructed once and injected wherever the flow
// is needed; it keeps no package-level state.
type FlowService struct {
	store    *storage.SessionStore
	auth     auth.Provider
	notifier notify.Notifier
	monitor  *monitoring.Monitor

	// mu guards the per-user current step pointers and serializes
	// session creation so back-to-back initialize calls for the same
	// user cannot create duplicate sessions.
	mu           sync.Mutex
	currentSteps map[string]string

	// Purchase deadline. Zero means no timers are armed.
	deadline     time.Duration
	tickInterval time.Duration
	timers       map[string]*Countdown
}

func NewFlowService(store *storage.SessionStore, authProvider auth.Provider, notifier notify.Notifier, monitor *monitoring.Monitor) *FlowService {
	return &FlowService{
		store:        store,
		auth:         authProvider,
		notifier:     notifier,
		monitor:      monitor,
		currentSteps: make(map[string]string),
		timers:       make(map[string]*Countdown),
	}
}

// ConfigureDeadline arms a purchase deadline for each session: when the
// countdown runs out the session is cleared and the user must start
// over. A zero deadline or interval disables the timers.
func (s *FlowService) ConfigureDeadline(deadline, interval time.Duration) {
	s.mu.Lock()
	s.deadline = deadline
	s.tickInterval = interval
	s.mu.Unlock()
}

// startDeadlineLocked (re)arms the user's countdown. Caller holds mu.
func (s *FlowService) startDeadlineLocked(userID string) {
	if s.deadline <= 0 || s.tickInterval <= 0 {
		return
	}
	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
	}
	s.timers[userID] = NewCountdown(s.deadline, s.tickInterval, func() {
		s.expireFlow(userID)
	})
}

func (s *FlowService) expireFlow(userID string) {
	slog.Info("Purchase deadline reached, clearing flow session", "user_id", userID)
	s.monitor.TrackFlowOperation("session_deadline", "expired")
	s.ClearSession(context.Background(), userID)
	s.notifier.Publish(userID, map[string]any{
		"type": "flow_expired",
	})
}

// DeadlineRemaining reports whether the user has an armed deadline and
// the whole seconds left on it.
func (s *FlowService) DeadlineRemaining(userID string) (armed bool, seconds int64) {
	s.mu.Lock()
	timer := s.timers[userID]
	interval := s.tickInterval
	s.mu.Unlock()

	if timer == nil || timer.Expired() {
		return false, 0
	}
	return true, timer.Remaining() * int64(interval.Seconds())
}

// InitializeSession returns the user's live session id, creating a new
// session only when the active pointer names nothing resumable. Calling
// it twice without an intervening ClearSession returns the same id.
func (s *FlowService) InitializeSession(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", status.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.store.ActiveSession(ctx, userID); existing != "" {
		if session := s.store.GetSession(ctx, existing); session != nil && session.UserID == userID {
			// A resumed session in a fresh process has no timer yet.
			if _, ok := s.timers[userID]; !ok {
				s.startDeadlineLocked(userID)
			}
			s.monitor.TrackFlowOperation("initialize_session", "resumed")
			return existing, nil
		}
	}

	now := time.Now().UnixMilli()
	session := &models.Session{
		SessionID:   utils.NewSessionID(),
		UserID:      userID,
		CreatedAt:   now,
		LastUpdated: now,
		FlowData:    make(map[string]models.StepRecord),
	}

	if !s.store.StoreSession(ctx, session) {
		s.monitor.TrackFlowOperation("initialize_session", "error")
		return "", fmt.Errorf("could not persist session for user %s", userID)
	}
	s.store.SetActiveSession(ctx, userID, session.SessionID)
	s.startDeadlineLocked(userID)

	s.monitor.TrackFlowOperation("initialize_session", "created")
	s.monitor.SessionOpened()
	slog.Info("Flow session created", "session_id", session.SessionID, "user_id", userID)
	return session.SessionID, nil
}

// Close stops the deadline timers and drops the in-memory step
// pointers. Call on shutdown; persisted sessions stay behind for the
// next process to resume.
func (s *FlowService) Close() {
	s.mu.Lock()
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = make(map[string]*Countdown)
	s.currentSteps = make(map[string]string)
	s.mu.Unlock()
}

// GetActiveSessionID returns the session id the user's flow should
// resume, or empty when no flow is active.
func (s *FlowService) GetActiveSessionID(ctx context.Context, userID string) string {
	return s.store.ActiveSession(ctx, userID)
}

// LoadSession is a direct lookup with no side effects beyond the
// storage layer's own fallback chaining.
func (s *FlowService) LoadSession(ctx context.Context, sessionID string) *models.Session {
	return s.store.GetSession(ctx, sessionID)
}

// UpdateSession merges fields into an existing session. It reports
// false when the session does not exist; it never creates one.
func (s *FlowService) UpdateSession(ctx context.Context, sessionID string, patch func(*models.Session)) bool {
	return s.store.UpdateSession(ctx, sessionID, patch)
}

// SetCurrentStep moves the in-memory step pointer. Pure bookkeeping:
// nothing is persisted and nothing can fail.
func (s *FlowService) SetCurrentStep(userID, stepID string) {
	s.mu.Lock()
	s.currentSteps[userID] = stepID
	s.mu.Unlock()
}

func (s *FlowService) CurrentStep(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSteps[userID]
}

// UpdateFlowStep upserts the step record for stepID in the user's
// active session. The prior record for that step, if any, is replaced
// entirely; step data is never merged.
func (s *FlowService) UpdateFlowStep(ctx context.Context, userID, stepID, stepName string, data json.RawMessage, completed bool) bool {
	sessionID := s.store.ActiveSession(ctx, userID)
	if sessionID == "" {
		s.monitor.TrackFlowOperation("update_flow_step", "no_session")
		return false
	}

	record := models.StepRecord{
		StepID:    stepID,
		StepName:  stepName,
		Data:      data,
		Completed: completed,
		Timestamp: time.Now().UnixMilli(),
	}

	ok := s.store.StoreFlowStep(ctx, sessionID, record)
	if ok {
		s.monitor.TrackFlowOperation("update_flow_step", "success")
	} else {
		s.monitor.TrackFlowOperation("update_flow_step", "error")
	}
	return ok
}

// CompleteFlowStep marks an existing step record completed without
// touching its data. A missing record is skipped, not an error.
func (s *FlowService) CompleteFlowStep(ctx context.Context, userID, stepID string) bool {
	sessionID := s.store.ActiveSession(ctx, userID)
	if sessionID == "" {
		return false
	}
	if s.store.GetFlowStep(ctx, sessionID, stepID) == nil {
		return true
	}

	return s.store.UpdateSession(ctx, sessionID, func(session *models.Session) {
		record, ok := session.FlowData[stepID]
		if !ok {
			return
		}
		record.Completed = true
		session.FlowData[stepID] = record
	})
}

func (s *FlowService) ClearFlowStep(ctx context.Context, userID, stepID string) bool {
	sessionID := s.store.ActiveSession(ctx, userID)
	if sessionID == "" {
		return false
	}
	return s.store.ClearFlowStep(ctx, sessionID, stepID)
}

func (s *FlowService) GetFlowStep(ctx context.Context, userID, stepID string) *models.StepRecord {
	sessionID := s.store.ActiveSession(ctx, userID)
	if sessionID == "" {
		return nil
	}
	return s.store.GetFlowStep(ctx, sessionID, stepID)
}

func (s *FlowService) GetAllFlowSteps(ctx context.Context, userID string) []models.StepRecord {
	sessionID := s.store.ActiveSession(ctx, userID)
	if sessionID == "" {
		return nil
	}
	return s.store.GetAllFlowSteps(ctx, sessionID)
}

// ClearSession terminates the flow: the session record and the active
// pointer are removed and the step pointer forgotten.
func (s *FlowService) ClearSession(ctx context.Context, userID string) bool {
	sessionID := s.store.ActiveSession(ctx, userID)
	if sessionID == "" {
		return false
	}

	ok := s.store.ClearSession(ctx, sessionID)
	s.store.ClearActiveSession(ctx, userID)

	s.mu.Lock()
	delete(s.currentSteps, userID)
	if timer, found := s.timers[userID]; found {
		timer.Stop()
		delete(s.timers, userID)
	}
	s.mu.Unlock()

	if ok {
		s.monitor.TrackFlowOperation("clear_session", "success")
		s.monitor.SessionClosed()
	}
	return ok
}

// State derives where the user stands in the overall flow lifecycle.
func (s *FlowService) State(ctx context.Context, userID string) models.FlowState {
	sessionID := s.store.ActiveSession(ctx, userID)
	if sessionID == "" {
		return models.FlowUninitialized
	}
	if s.store.GetSession(ctx, sessionID) == nil {
		return models.FlowTerminated
	}
	return models.FlowActive
}

// InitializeFlowWithTicket starts a purchase for the authenticated
// user: it creates or resumes the session, points the flow at the
// ticket-selection step and records the chosen service as already
// captured. Lack of authentication propagates to the caller.
func (s *FlowService) InitializeFlowWithTicket(ctx context.Context, ticketData json.RawMessage) (string, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if _, err := s.auth.CurrentAccessToken(ctx); err != nil {
		return "", err
	}
	if len(ticketData) == 0 {
		return "", fmt.Errorf("%w: nil ticket data", status.ErrInvalidArgument)
	}

	sessionID, err := s.InitializeSession(ctx, user.ID)
	if err != nil {
		return "", err
	}

	s.store.UpdateSession(ctx, sessionID, func(session *models.Session) {
		session.TicketData = ticketData
	})

	s.SetCurrentStep(user.ID, models.StepTicketSelection)
	s.UpdateFlowStep(ctx, user.ID, models.StepTicketSelection,
		models.StepNames[models.StepTicketSelection], ticketData, true)

	return sessionID, nil
}

// GoToNextStep completes the step the pointer currently rests on, then
// advances the pointer, then records the new step. The old step is
// marked complete before the pointer moves so an interruption between
// the two leaves "still on old step, now complete" rather than a
// half-advanced flow.
func (s *FlowService) GoToNextStep(ctx context.Context, userID, stepID, stepName string, data json.RawMessage) bool {
	started := time.Now()

	if current := s.CurrentStep(userID); current != "" {
		s.CompleteFlowStep(ctx, userID, current)
	}

	s.SetCurrentStep(userID, stepID)
	ok := s.UpdateFlowStep(ctx, userID, stepID, stepName, data, false)

	if ok {
		s.monitor.TrackStepTransition(stepID, time.Since(started))
		s.notifier.Publish(userID, map[string]any{
			"type":    "flow_step",
			"step_id": stepID,
		})
	}
	return ok
}

// ReturnToSeatSelection rewinds the flow to seat selection and drops
// the passenger records. Backward navigation normally preserves
// forward data, but passenger details are bound to a specific seat
// selection: picking different seats invalidates them.
func (s *FlowService) ReturnToSeatSelection(ctx context.Context, userID string) bool {
	s.ClearFlowStep(ctx, userID, models.StepPassengerDetails)
	s.ClearFlowStep(ctx, userID, models.StepPassengerSelectedSeats)
	s.SetCurrentStep(userID, models.StepSeatSelection)
	return true
}

// GoToPreviousStep moves the pointer only. Step data stays intact; use
// this for steps whose previously entered data remains valid.
func (s *FlowService) GoToPreviousStep(userID, stepID string) {
	s.SetCurrentStep(userID, stepID)
}

func (s *FlowService) GetFlowProgress(ctx context.Context, userID string) models.FlowProgress {
	steps := s.GetAllFlowSteps(ctx, userID)

	progress := models.FlowProgress{Total: len(steps)}
	for _, step := range steps {
		if step.Completed {
			progress.Completed++
		}
	}
	if progress.Total > 0 {
		progress.Percentage = float64(progress.Completed) / float64(progress.Total) * 100
	}
	return progress
}
