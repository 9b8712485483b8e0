package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"casepay/internal/adapter/api/handler"
	"casepay/internal/adapter/api/middleware"
	"casepay/internal/infrastructure/ratelimit"
)

type Handlers struct {
	Payment *handler.PaymentHandler
	Case    *handler.CaseHandler
	Health  *handler.HealthHandler
	Metrics http.Handler
}

type Middlewares struct {
	Auth           *middleware.AuthMiddleware
	Role           *middleware.RoleMiddleware
	PaymentLimiter *ratelimit.KeyedLimiter
	WebhookLimiter *ratelimit.KeyedLimiter
}

func Setup(e *echo.Echo, h Handlers, m Middlewares) {
	SetupPaymentRouter(e, h.Payment, m)
	SetupCaseRouter(e, h.Case, m)
	SetupHealthRouter(e, h.Health, h.Metrics)
}
