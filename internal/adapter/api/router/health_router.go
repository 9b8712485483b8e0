package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"casepay/internal/adapter/api/handler"
)

func SetupHealthRouter(e *echo.Echo, h *handler.HealthHandler, metrics http.Handler) {
	e.GET("/health", h.CheckHealth)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}
