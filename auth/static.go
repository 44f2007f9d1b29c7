package auth

import (
	"context"

	"busflow/internal/status"
)

// StaticProvider always answers with a fixed user and token. Used in
// tests and local development.
type StaticProvider struct {
	User  *User
	Token string
}

func (p *StaticProvider) CurrentUser(ctx context.Context) (*User, error) {
	if p.User == nil {
		return nil, status.ErrNotAuthenticated
	}
	return p.User, nil
}

func (p *StaticProvider) CurrentAccessToken(ctx context.Context) (string, error) {
	if p.Token == "" {
		return "", status.ErrNotAuthenticated
	}
	return p.Token, nil
}
