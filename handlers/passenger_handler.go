package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v5"

	"busflow/models"
	"busflow/services"
)

type PassengerHandler struct {
	flow       *services.FlowService
	passengers *services.PassengerService
	seats      *services.SeatService
}

func NewPassengerHandler(flow *services.FlowService, passengers *services.PassengerService, seats *services.SeatService) *PassengerHandler {
	return &PassengerHandler{
		flow:       flow,
		passengers: passengers,
		seats:      seats,
	}
}

// SubmitPassengers replaces the passenger set for the active session
// and mirrors it into the flow's passenger-details step so a reload
// restores the form.
func (h *PassengerHandler) SubmitPassengers(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Passengers []models.Passenger `json:"passengers"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	ctx := c.Request().Context()
	session := h.flow.LoadSession(ctx, h.flow.GetActiveSessionID(ctx, userID))
	if session == nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "جلسه خرید یافت نشد، لطفا دوباره شروع کنید"})
	}

	if !h.passengers.AddPassengers(ctx, session.SessionID, req.Passengers) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "خطا در ذخیره اطلاعات مسافران"})
	}

	data, _ := json.Marshal(req.Passengers)
	h.flow.UpdateFlowStep(ctx, userID, models.StepPassengerDetails,
		models.StepNames[models.StepPassengerDetails], data, false)

	return c.JSON(http.StatusOK, map[string]any{
		"count": len(req.Passengers),
	})
}

func (h *PassengerHandler) GetPassengers(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	sessionID := h.flow.GetActiveSessionID(ctx, userID)
	if sessionID == "" {
		return c.JSON(http.StatusOK, map[string]any{"passengers": []models.Passenger{}})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"passengers": h.passengers.GetPassengers(ctx, sessionID),
	})
}

// SelectSeats stores the seat-layout scratch state and mirrors it into
// the passenger_selected_seats step record.
func (h *PassengerHandler) SelectSeats(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Seats []models.SeatSelection `json:"seats"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	ctx := c.Request().Context()
	sessionID := h.flow.GetActiveSessionID(ctx, userID)
	if sessionID == "" {
		return c.JSON(http.StatusConflict, map[string]string{"error": "جلسه خرید یافت نشد، لطفا دوباره شروع کنید"})
	}

	if !h.seats.SelectSeats(ctx, sessionID, req.Seats) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "خطا در ذخیره صندلی‌های انتخابی"})
	}

	data, _ := json.Marshal(req.Seats)
	h.flow.UpdateFlowStep(ctx, userID, models.StepPassengerSelectedSeats,
		models.StepNames[models.StepPassengerSelectedSeats], data, false)

	return c.JSON(http.StatusOK, map[string]any{
		"count": len(req.Seats),
	})
}

func (h *PassengerHandler) GetSelectedSeats(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	sessionID := h.flow.GetActiveSessionID(ctx, userID)
	if sessionID == "" {
		return c.JSON(http.StatusOK, map[string]any{"seats": []models.SeatSelection{}})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"seats": h.seats.SelectedSeats(ctx, sessionID),
	})
}
