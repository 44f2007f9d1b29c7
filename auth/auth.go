package auth

import (
	"context"

	"busflow/internal/status"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider is the external auth collaborator. "No user or no token"
// both read as not authenticated; the flow layer refuses to start a
// purchase in that case.
type Provider interface {
	CurrentUser(ctx context.Context) (*User, error)
	CurrentAccessToken(ctx context.Context) (string, error)
}

type ctxKey int

const tokenKey ctxKey = iota

// WithToken attaches the request's bearer token to the context. The
// HTTP middleware is the only writer.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func TokenFromContext(ctx context.Context) (string, error) {
	token, _ := ctx.Value(tokenKey).(string)
	if token == "" {
		return "", status.ErrNotAuthenticated
	}
	return token, nil
}
