package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T) (*RateLimiter, *echo.Echo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client), echo.New()
}

func doRequest(e *echo.Echo, mw echo.MiddlewareFunc, userAgent string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/flow/next", nil)
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	_ = handler(c)
	return rec
}

func TestRateLimiter_ThrottlesAboveLimit(t *testing.T) {
	limiter, e := setupLimiter(t)
	mw := limiter.FlowRateLimit()

	for i := 0; i < 30; i++ {
		rec := doRequest(e, mw, "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d within the window", i+1)
	}

	rec := doRequest(e, mw, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiter_FailsOpenWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	limiter := NewRateLimiter(client)
	e := echo.New()
	mw := limiter.FlowRateLimit()

	for i := 0; i < 40; i++ {
		rec := doRequest(e, mw, "")
		require.Equal(t, http.StatusOK, rec.Code, "counting backend down must not block traffic")
	}
}

func TestAntiBotMiddleware(t *testing.T) {
	limiter, e := setupLimiter(t)
	mw := limiter.AntiBotMiddleware()

	rec := doRequest(e, mw, "Mozilla/5.0")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, mw, "my-crawler/1.0")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
