package models

import "github.com/shopspring/decimal"

// TicketInfo describes one bus service as returned by the backend lookup.
// The flow session carries it opaquely; only the search pages interpret it.
type TicketInfo struct {
	ServiceNo      string          `json:"service_no"`
	CompanyName    string          `json:"company_name"`
	Price          decimal.Decimal `json:"price"`
	Source         string          `json:"source"`
	Destination    string          `json:"destination"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	Duration       string          `json:"duration,omitempty"`
	Distance       string          `json:"distance,omitempty"`
	AvailableSeats int             `json:"available_seats"`
}

// CityEntry is a short-lived search selection (source or destination city).
type CityEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
