package router

import (
	"github.com/labstack/echo/v4"

	"casepay/internal/adapter/api/handler"
	"casepay/internal/adapter/api/middleware"
	"casepay/internal/domain/entity"
)

func SetupPaymentRouter(e *echo.Echo, h *handler.PaymentHandler, m Middlewares) {
	payments := e.Group("/payments")

	// Called by the gateway; authenticated by signature, not by token.
	payments.POST("/webhook", h.Webhook, middleware.RateLimit(m.WebhookLimiter))

	payerLimit := middleware.RateLimit(m.PaymentLimiter)
	requirePayer := m.Role.RequireRole(entity.RolePayer)
	payments.GET("/fee-quote", h.FeeQuote, m.Auth.Authenticate)
	payments.POST("/orders", h.CreateOrder, payerLimit, m.Auth.Authenticate, requirePayer)
	payments.POST("/verify", h.VerifyPayment, payerLimit, m.Auth.Authenticate, requirePayer)
	payments.GET("/orders/:orderId", h.GetPayment, m.Auth.Authenticate, m.Role.LoadRole)

	requireAdmin := m.Role.RequireRole(entity.RoleAdmin)
	payments.POST("/mark-paid", h.MarkPaid, m.Auth.Authenticate, requireAdmin)
	payments.GET("", h.ListPayments, m.Auth.Authenticate, requireAdmin)
}
