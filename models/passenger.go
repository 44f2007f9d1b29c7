package models

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Passenger is session-scoped scratch state for the passenger-details step.
// Uniqueness is the (ID, SessionID) pair: the same passenger id may appear
// under different sessions without collision.
type Passenger struct {
	ID                       string `json:"id"`
	SeatID                   string `json:"seat_id"`
	SeatNo                   int    `json:"seat_no"`
	Name                     string `json:"name"`
	Family                   string `json:"family"`
	NationalID               string `json:"national_id"`
	Gender                   Gender `json:"gender"`
	BirthDate                string `json:"birth_date"`
	IsFromPreviousPassengers bool   `json:"is_from_previous_passengers"`
	HasBeenModified          bool   `json:"has_been_modified"`
	SessionID                string `json:"session_id"`
	Timestamp                int64  `json:"timestamp"`
}

// SeatSelection is the seat-layout scratch state for one session.
type SeatSelection struct {
	SeatID    string `json:"seat_id"`
	SeatNo    int    `json:"seat_no"`
	Gender    Gender `json:"gender,omitempty"`
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
}
