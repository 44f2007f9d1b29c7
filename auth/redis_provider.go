package auth

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"busflow/internal/status"
)

// RedisProvider resolves the current user by introspecting the bearer
// token against the auth provider's token table in Redis. The token is
// written there by the external auth service; this package only reads.
type RedisProvider struct {
	client *redis.Client
}

func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

func (p *RedisProvider) CurrentAccessToken(ctx context.Context) (string, error) {
	return TokenFromContext(ctx)
}

func (p *RedisProvider) CurrentUser(ctx context.Context) (*User, error) {
	token, err := TokenFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tokenKey := fmt.Sprintf("auth:token:%s", token)
	fields, err := p.client.HGetAll(ctx, tokenKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrNotAuthenticated, err)
	}
	if len(fields) == 0 || fields["user_id"] == "" {
		return nil, status.ErrNotAuthenticated
	}

	return &User{
		ID:    fields["user_id"],
		Email: fields["email"],
	}, nil
}
