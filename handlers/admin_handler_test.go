package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busflow/auth"
	"busflow/cache"
	"busflow/models"
	"busflow/monitoring"
	"busflow/notify"
	"busflow/services"
	"busflow/storage"
)

func newAdminFixture(t *testing.T) (*AdminHandler, *services.FlowService, *storage.SessionStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	monitor := monitoring.NewMonitor()
	primary := storage.NewMemoryBackend()
	fallback := storage.NewFallbackStore(storage.NewMemoryBackend(), storage.NewMemoryBackend())
	store := storage.NewSessionStore(primary, fallback, monitor)

	provider := &auth.StaticProvider{User: &auth.User{ID: "u1"}, Token: "tok"}
	flow := services.NewFlowService(store, provider, notify.Nop{}, monitor)
	passengers := services.NewPassengerService(primary)
	searchCache := cache.NewExpiringCache(storage.NewMemoryBackend(), monitor, 0)
	maintenance := services.NewMaintenance(store, passengers, searchCache,
		time.Hour, time.Hour, 30*time.Minute)

	return NewAdminHandler(flow, maintenance, client), flow, store
}

func TestAdminHandler_ForceCleanup(t *testing.T) {
	handler, _, store := newAdminFixture(t)

	// A session last touched two hours ago is past the one-hour retention.
	old := time.Now().Add(-2 * time.Hour).UnixMilli()
	require.True(t, store.StoreSession(context.Background(), &models.Session{
		SessionID:   "s-stale",
		UserID:      "u9",
		CreatedAt:   old,
		LastUpdated: old,
		FlowData:    map[string]models.StepRecord{},
	}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/force-cleanup", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.ForceCleanup(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, store.GetSession(context.Background(), "s-stale"))
}

func TestAdminHandler_TerminateSession(t *testing.T) {
	handler, flow, _ := newAdminFixture(t)

	_, err := flow.InitializeSession(context.Background(), "u1")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/terminate-session",
		strings.NewReader(`{"user_id":"u1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.TerminateSession(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.FlowUninitialized, flow.State(context.Background(), "u1"))
}
