package auth

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busflow/internal/status"
)

func TestRedisProvider_CurrentUser(t *testing.T) {
	client, mock := redismock.NewClientMock()
	provider := NewRedisProvider(client)

	mock.ExpectHGetAll("auth:token:tok-1").SetVal(map[string]string{
		"user_id": "u1",
		"email":   "u1@example.com",
	})

	ctx := WithToken(context.Background(), "tok-1")
	user, err := provider.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "u1@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisProvider_UnknownToken(t *testing.T) {
	client, mock := redismock.NewClientMock()
	provider := NewRedisProvider(client)

	mock.ExpectHGetAll("auth:token:bogus").SetVal(map[string]string{})

	ctx := WithToken(context.Background(), "bogus")
	_, err := provider.CurrentUser(ctx)
	assert.ErrorIs(t, err, status.ErrNotAuthenticated)
}

func TestRedisProvider_NoTokenInContext(t *testing.T) {
	client, _ := redismock.NewClientMock()
	provider := NewRedisProvider(client)

	_, err := provider.CurrentUser(context.Background())
	assert.ErrorIs(t, err, status.ErrNotAuthenticated)

	_, err = provider.CurrentAccessToken(context.Background())
	assert.ErrorIs(t, err, status.ErrNotAuthenticated)
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := WithToken(context.Background(), "tok-9")
	token, err := TokenFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-9", token)
}
