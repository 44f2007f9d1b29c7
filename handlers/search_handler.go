package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"busflow/cache"
	"busflow/models"
)

// SearchHandler keeps the short-lived search selections (source city,
// destination city, travel date). Each entry expires on its own clock;
// an expired source with a live destination is a legitimate state and
// the front end simply asks the user again.
type SearchHandler struct {
	cache *cache.ExpiringCache
}

func NewSearchHandler(c *cache.ExpiringCache) *SearchHandler {
	return &SearchHandler{cache: c}
}

func (h *SearchHandler) SaveSelection(c echo.Context) error {
	var req struct {
		Source      *models.CityEntry `json:"source"`
		Destination *models.CityEntry `json:"destination"`
		TravelDate  string            `json:"travel_date"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if req.Source != nil {
		h.cache.Set(cache.KeySourceCityID, req.Source.ID, 0)
		h.cache.Set(cache.KeySourceCityName, req.Source.Name, 0)
	}
	if req.Destination != nil {
		h.cache.Set(cache.KeyDestinationCityID, req.Destination.ID, 0)
		h.cache.Set(cache.KeyDestinationCityName, req.Destination.Name, 0)
	}
	if req.TravelDate != "" {
		h.cache.Set(cache.KeyTravelDate, req.TravelDate, 0)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Selection saved"})
}

func (h *SearchHandler) GetSelection(c echo.Context) error {
	resp := map[string]any{}

	var source, destination models.CityEntry
	if h.cache.Get(cache.KeySourceCityID, &source.ID) &&
		h.cache.Get(cache.KeySourceCityName, &source.Name) {
		resp["source"] = source
	}
	if h.cache.Get(cache.KeyDestinationCityID, &destination.ID) &&
		h.cache.Get(cache.KeyDestinationCityName, &destination.Name) {
		resp["destination"] = destination
	}

	var travelDate string
	if h.cache.Get(cache.KeyTravelDate, &travelDate) {
		resp["travel_date"] = travelDate
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *SearchHandler) ClearSelection(c echo.Context) error {
	for _, key := range []string{
		cache.KeySourceCityID,
		cache.KeySourceCityName,
		cache.KeyDestinationCityID,
		cache.KeyDestinationCityName,
		cache.KeyTravelDate,
	} {
		h.cache.Remove(key)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Selection cleared"})
}
