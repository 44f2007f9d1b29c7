package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"busflow/internal/status"
	"busflow/models"
)

// Client resolves a (token, ticketID) pair into a service descriptor.
// The backend REST API is a black box: the flow stores whatever it
// returns without interpreting it.
type Client interface {
	Service(ctx context.Context, token, ticketID string) (*models.TicketInfo, error)
}

type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) Service(ctx context.Context, token, ticketID string) (*models.TicketInfo, error) {
	url := fmt.Sprintf("%s/api/services/%s", c.baseURL, ticketID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticket lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, status.ErrTicketNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, status.ErrNotAuthenticated
	default:
		return nil, fmt.Errorf("ticket lookup returned status %d", resp.StatusCode)
	}

	var info models.TicketInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding ticket descriptor: %w", err)
	}
	return &info, nil
}
