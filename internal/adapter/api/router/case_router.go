package router

import (
	"github.com/labstack/echo/v4"

	"casepay/internal/adapter/api/handler"
	"casepay/internal/domain/entity"
)

func SetupCaseRouter(e *echo.Echo, h *handler.CaseHandler, m Middlewares) {
	cases := e.Group("/cases", m.Auth.Authenticate)

	cases.POST("", h.RegisterCase, m.Role.AdminOnly)
	cases.GET("/:id", h.GetCase, m.Role.LoadRole)
	cases.PATCH("/:id/status", h.TransitionStatus, m.Role.RequireRole(entity.RoleAdmin, entity.RoleAdvocate))
}
