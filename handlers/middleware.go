package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"busflow/auth"
)

// AuthMiddleware extracts the bearer token, resolves the current user
// through the auth provider and stashes both on the request. Handlers
// that require authentication call requireUser.
func AuthMiddleware(provider auth.Provider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token != "" && token != header {
				ctx := auth.WithToken(c.Request().Context(), token)
				c.SetRequest(c.Request().WithContext(ctx))

				if user, err := provider.CurrentUser(ctx); err == nil {
					c.Set("user_id", user.ID)
				}
			}
			return next(c)
		}
	}
}

func requireUser(c echo.Context) (string, error) {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return userID, nil
}
