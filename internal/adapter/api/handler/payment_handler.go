package handler

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
	"casepay/internal/usecase"
	"casepay/pkg/errors"
	"casepay/pkg/logger"
	"casepay/pkg/response"
	"casepay/pkg/utils"
)

const (
	SignatureHeader = "X-Razorpay-Signature"
	EventIDHeader   = "X-Razorpay-Event-Id"

	verifyFailedMessage = "payment could not be verified, please contact support"
	maxWebhookBody      = 1 << 20
)

type PaymentHandler struct {
	orderUC        *usecase.OrderUseCase
	verificationUC *usecase.VerificationUseCase
	webhookUC      *usecase.WebhookUseCase
	reconcilerUC   *usecase.ReconcilerUseCase
	caseUC         *usecase.CaseUseCase
}

func NewPaymentHandler(
	orderUC *usecase.OrderUseCase,
	verificationUC *usecase.VerificationUseCase,
	webhookUC *usecase.WebhookUseCase,
	reconcilerUC *usecase.ReconcilerUseCase,
	caseUC *usecase.CaseUseCase,
) *PaymentHandler {
	return &PaymentHandler{
		orderUC:        orderUC,
		verificationUC: verificationUC,
		webhookUC:      webhookUC,
		reconcilerUC:   reconcilerUC,
		caseUC:         caseUC,
	}
}

type CreateOrderRequest struct {
	CaseID      *uint   `json:"case_id,omitempty"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Description string  `json:"description,omitempty" validate:"max=255"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type MarkPaidRequest struct {
	CaseID        uint    `json:"case_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Note          string  `json:"note,omitempty" validate:"max=1000"`
	TransactionID string  `json:"transaction_id,omitempty" validate:"max=128"`
}

type PaymentResultResponse struct {
	Verified       bool            `json:"verified"`
	AlreadyApplied bool            `json:"already_applied"`
	CaseAdvanced   bool            `json:"case_advanced"`
	Payment        *entity.Payment `json:"payment,omitempty"`
	Case           *entity.Case    `json:"case,omitempty"`
}

func newPaymentResult(result *usecase.ReconcileResult) PaymentResultResponse {
	return PaymentResultResponse{
		Verified:       true,
		AlreadyApplied: result.AlreadyApplied,
		CaseAdvanced:   result.CaseAdvanced,
		Payment:        result.Payment,
		Case:           result.Case,
	}
}

func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, errors.BadRequest("Validation failed", err))
	}

	// Get the payer from the auth middleware
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	// Issue the order, or hand back the case's open one
	order, err := h.orderUC.CreateOrder(c.Request().Context(), usecase.CreateOrderInput{
		CaseID:      req.CaseID,
		Amount:      req.Amount,
		Description: req.Description,
	}, caller.UID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, order)
}

// VerifyPayment is the checkout callback. Payers only ever see a generic
// failure message; the specific error kind goes to the log and to the
// payment ledger administrators read.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	var req VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, errors.BadRequest("Validation failed", err))
	}

	// Get the payer from the auth middleware
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	// Check the signature and apply the payment
	result, err := h.verificationUC.VerifyClientPayment(c.Request().Context(), usecase.VerifyPaymentInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	}, caller.UID)
	if err != nil {
		logger.Warn("payment verification failed", "order_id", req.OrderID, "uid", caller.UID, "code", errors.CodeOf(err), "error", err)
		return response.Masked(c, err, verifyFailedMessage)
	}

	return response.Success(c, newPaymentResult(result))
}

// Webhook answers the gateway with a bare {status} body. Only a bad
// signature, an oversized or malformed body or a store failure is non-200.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	// Read the raw body; the signature covers the exact bytes
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			logger.Warn("webhook body too large", "limit", tooLarge.Limit)
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"status": "payload too large"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "unreadable body"})
	}

	// Verify and apply the delivery
	result, err := h.webhookUC.HandleWebhook(
		c.Request().Context(),
		body,
		c.Request().Header.Get(SignatureHeader),
		c.Request().Header.Get(EventIDHeader),
	)
	if err != nil {
		// Map the failure to a status the gateway understands
		switch errors.CodeOf(err) {
		case errors.CodeInvalidSignature:
			return c.JSON(http.StatusUnauthorized, map[string]string{"status": "invalid signature"})
		case errors.CodeBadRequest:
			return c.JSON(http.StatusBadRequest, map[string]string{"status": "malformed payload"})
		default:
			logger.Error("webhook processing failed", "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": string(result.Outcome)})
}

func (h *PaymentHandler) MarkPaid(c echo.Context) error {
	var req MarkPaidRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, errors.BadRequest("Validation failed", err))
	}

	// Get the administrator from the auth middleware
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	// Record the payment and advance the case in one step
	result, err := h.reconcilerUC.ApplyManualOverride(c.Request().Context(), usecase.ManualOverrideInput{
		CaseID:        req.CaseID,
		Amount:        req.Amount,
		Note:          req.Note,
		TransactionID: req.TransactionID,
	}, caller.UID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, newPaymentResult(result))
}

func (h *PaymentHandler) FeeQuote(c echo.Context) error {
	amount, err := strconv.ParseFloat(c.QueryParam("dispute_amount"), 64)
	if err != nil {
		return response.Error(c, errors.BadRequest("dispute_amount must be a number", err))
	}
	if amount < 0 {
		return response.Error(c, errors.InvalidAmount("dispute_amount cannot be negative"))
	}

	return response.Success(c, map[string]interface{}{
		"dispute_amount": amount,
		"fee":            h.caseUC.FeeQuote(amount),
	})
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	payment, err := h.orderUC.GetPayment(c.Request().Context(), c.Param("orderId"), caller.UID, caller.IsAdmin())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, payment)
}

func (h *PaymentHandler) ListPayments(c echo.Context) error {
	params := utils.GetPaginationParams(c)

	// Build the filter from the query string
	filter := repository.PaymentFilter{
		Status: entity.PaymentStatus(c.QueryParam("status")),
		UserID: c.QueryParam("user_id"),
	}
	if raw := c.QueryParam("case_id"); raw != "" {
		caseID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return response.Error(c, errors.BadRequest("Invalid case_id", err))
		}
		id := uint(caseID)
		filter.CaseID = &id
	}

	payments, total, err := h.orderUC.ListPayments(c.Request().Context(), filter, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, utils.NewPage(payments, total, params))
}
