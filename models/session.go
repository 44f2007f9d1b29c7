package models

import (
	"encoding/json"
	"time"
)

// Session is one in-progress purchase attempt. SessionID never changes
// after creation; FlowData holds at most one StepRecord per step id.
type Session struct {
	SessionID   string                `json:"session_id"`
	UserID      string                `json:"user_id"`
	CreatedAt   int64                 `json:"created_at"`
	LastUpdated int64                 `json:"last_updated"`
	TicketData  json.RawMessage       `json:"ticket_data,omitempty"`
	FlowData    map[string]StepRecord `json:"flow_data"`
}

type StepRecord struct {
	StepID    string          `json:"step_id"`
	StepName  string          `json:"step_name"`
	Data      json.RawMessage `json:"data,omitempty"`
	Completed bool            `json:"completed"`
	Timestamp int64           `json:"timestamp"`
}

// Flow step identifiers. Extensible, but these cover the purchase flow.
const (
	StepTicketSelection        = "ticket_selection"
	StepSeatSelection          = "seat_selection"
	StepPassengerDetails       = "passenger_details"
	StepPassengerSelectedSeats = "passenger_selected_seats"
	StepConfirmation           = "confirmation"
	StepPayment                = "payment"
	StepTicketIssuance         = "ticket_issuance"
)

// StepNames maps step ids to their display labels.
var StepNames = map[string]string{
	StepTicketSelection:        "انتخاب بلیط",
	StepSeatSelection:          "انتخاب صندلی",
	StepPassengerDetails:       "مشخصات مسافران",
	StepPassengerSelectedSeats: "صندلی‌های انتخابی",
	StepConfirmation:           "تایید اطلاعات",
	StepPayment:                "پرداخت",
	StepTicketIssuance:         "صدور بلیط",
}

type FlowState string

const (
	FlowUninitialized FlowState = "uninitialized"
	FlowActive        FlowState = "active"
	FlowTerminated    FlowState = "terminated"
)

func (s FlowState) IsActive() bool {
	return s == FlowActive
}

func (s FlowState) IsTerminal() bool {
	return s == FlowTerminated
}

type FlowProgress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percentage float64 `json:"percentage"`
}

// Age reports how long ago the session was last touched.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.LastUpdated))
}
