package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health check
func (h *handler) healthCheck(c echo.Context) error {
	if err := h.db.PingContext(c.Request().Context()); err != nil {
		c.Logger().Error("health check database error: ", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
