package services

import (
	"context"
	"encoding/json"
	"fmt"

	"busflow/lookup"
)

// TicketService is the ticket-context: it turns the (token, ticketId)
// pair from the route parameters into a flow session carrying the
// service descriptor.
type TicketService struct {
	lookup lookup.Client
	flow   *FlowService
}

func NewTicketService(lookupClient lookup.Client, flow *FlowService) *TicketService {
	return &TicketService{
		lookup: lookupClient,
		flow:   flow,
	}
}

// StartFlow resolves the ticket and initializes the purchase flow with
// its descriptor. Lookup and authentication failures propagate.
func (s *TicketService) StartFlow(ctx context.Context, token, ticketID string) (string, error) {
	info, err := s.lookup.Service(ctx, token, ticketID)
	if err != nil {
		return "", err
	}

	ticketData, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encoding ticket descriptor: %w", err)
	}

	return s.flow.InitializeFlowWithTicket(ctx, ticketData)
}
