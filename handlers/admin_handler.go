package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"

	"busflow/services"
)

type AdminHandler struct {
	flow        *services.FlowService
	maintenance *services.Maintenance
	redis       *redis.Client
}

func NewAdminHandler(flow *services.FlowService, maintenance *services.Maintenance, redisClient *redis.Client) *AdminHandler {
	return &AdminHandler{
		flow:        flow,
		maintenance: maintenance,
		redis:       redisClient,
	}
}

// GetSessionDashboard reports how many flow sessions and pointers the
// primary store currently holds.
func (h *AdminHandler) GetSessionDashboard(c echo.Context) error {
	ctx := c.Request().Context()

	sessionKeys, err := h.redis.Keys(ctx, "flow_sessions:*").Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Primary store unavailable",
		})
	}
	pointerKeys, _ := h.redis.Keys(ctx, "active_session:*").Result()

	return c.JSON(http.StatusOK, map[string]any{
		"sessions":        len(sessionKeys),
		"active_pointers": len(pointerKeys),
	})
}

// ForceCleanup triggers one maintenance sweep immediately.
func (h *AdminHandler) ForceCleanup(c echo.Context) error {
	h.maintenance.Sweep(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]string{"message": "Cleanup completed"})
}

// TerminateSession clears a user's flow session (support action).
func (h *AdminHandler) TerminateSession(c echo.Context) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	ctx := c.Request().Context()
	if state := h.flow.State(ctx, req.UserID); state.IsTerminal() {
		// Dangling pointer with no session record behind it.
		h.flow.ClearSession(ctx, req.UserID)
		return c.JSON(http.StatusOK, map[string]string{"message": "Session terminated"})
	}
	if !h.flow.ClearSession(ctx, req.UserID) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No active session for user"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Session terminated"})
}
