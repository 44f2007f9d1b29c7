package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"busflow/auth"
	"busflow/internal/status"
	"busflow/models"
	"busflow/services"
)

type FlowHandler struct {
	flow    *services.FlowService
	tickets *services.TicketService
}

func NewFlowHandler(flow *services.FlowService, tickets *services.TicketService) *FlowHandler {
	return &FlowHandler{
		flow:    flow,
		tickets: tickets,
	}
}

// StartFlow begins a purchase from the (token, ticket_id) pair carried
// by the route.
func (h *FlowHandler) StartFlow(c echo.Context) error {
	var req struct {
		TicketID string `json:"ticket_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.TicketID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ticket_id is required"})
	}

	ctx := c.Request().Context()
	token, err := auth.TokenFromContext(ctx)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "برای خرید بلیط ابتدا وارد شوید"})
	}

	sessionID, err := h.tickets.StartFlow(ctx, token, req.TicketID)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrNotAuthenticated):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "برای خرید بلیط ابتدا وارد شوید"})
		case errors.Is(err, status.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "سرویس مورد نظر یافت نشد"})
		default:
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "خطا در شروع فرآیند خرید"})
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"session_id":   sessionID,
		"current_step": models.StepTicketSelection,
	})
}

// NextStep completes the current step and advances the flow.
func (h *FlowHandler) NextStep(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req struct {
		StepID   string          `json:"step_id"`
		StepName string          `json:"step_name"`
		Data     json.RawMessage `json:"data"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.StepID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "step_id is required"})
	}
	if req.StepName == "" {
		req.StepName = models.StepNames[req.StepID]
	}

	if !h.flow.GoToNextStep(c.Request().Context(), userID, req.StepID, req.StepName, req.Data) {
		return c.JSON(http.StatusConflict, map[string]string{"error": "جلسه خرید یافت نشد، لطفا دوباره شروع کنید"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"current_step": req.StepID,
	})
}

// PreviousStep moves the pointer backward without touching step data.
func (h *FlowHandler) PreviousStep(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req struct {
		StepID string `json:"step_id"`
	}
	if err := c.Bind(&req); err != nil || req.StepID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "step_id is required"})
	}

	h.flow.GoToPreviousStep(userID, req.StepID)
	return c.JSON(http.StatusOK, map[string]any{
		"current_step": req.StepID,
	})
}

// ReturnToSeatSelection rewinds to seat selection, dropping passenger
// data tied to the abandoned seat choice.
func (h *FlowHandler) ReturnToSeatSelection(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	h.flow.ReturnToSeatSelection(c.Request().Context(), userID)
	return c.JSON(http.StatusOK, map[string]any{
		"current_step": models.StepSeatSelection,
	})
}

func (h *FlowHandler) GetStep(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	stepID := c.QueryParam("step_id")
	record := h.flow.GetFlowStep(c.Request().Context(), userID, stepID)
	if record == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Step not found"})
	}
	return c.JSON(http.StatusOK, record)
}

func (h *FlowHandler) GetSteps(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	steps := h.flow.GetAllFlowSteps(ctx, userID)
	return c.JSON(http.StatusOK, map[string]any{
		"current_step": h.flow.CurrentStep(userID),
		"active":       h.flow.State(ctx, userID).IsActive(),
		"steps":        steps,
	})
}

func (h *FlowHandler) GetProgress(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	resp := map[string]any{
		"progress": h.flow.GetFlowProgress(c.Request().Context(), userID),
	}
	if armed, seconds := h.flow.DeadlineRemaining(userID); armed {
		resp["deadline_seconds"] = seconds
	}
	return c.JSON(http.StatusOK, resp)
}

// ClearSession terminates the flow (logout, abandon).
func (h *FlowHandler) ClearSession(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	if !h.flow.ClearSession(c.Request().Context(), userID) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No active session"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Session cleared"})
}
