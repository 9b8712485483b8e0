package usecase

import (
	"context"
	stderrors "errors"
	"strconv"

	nanoid "github.com/jaevor/go-nanoid"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
	"casepay/internal/domain/service"
	"casepay/internal/infrastructure/metrics"
	"casepay/pkg/errors"
	"casepay/pkg/logger"
)

const receiptIDLength = 16

type OrderUseCase struct {
	caseRepo    repository.CaseRepository
	paymentRepo repository.PaymentRepository
	gateway     service.PaymentGatewayService
	metrics     *metrics.PaymentMetrics
	currency    string
	defaultFee  float64
	receiptID   func() string
}

func NewOrderUseCase(
	caseRepo repository.CaseRepository,
	paymentRepo repository.PaymentRepository,
	gateway service.PaymentGatewayService,
	paymentMetrics *metrics.PaymentMetrics,
	currency string,
	defaultFee float64,
) (*OrderUseCase, error) {
	generator, err := nanoid.Standard(receiptIDLength)
	if err != nil {
		return nil, err
	}

	return &OrderUseCase{
		caseRepo:    caseRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		metrics:     paymentMetrics,
		currency:    currency,
		defaultFee:  defaultFee,
		receiptID:   generator,
	}, nil
}

type CreateOrderInput struct {
	CaseID      *uint
	Amount      float64
	Description string
}

// OrderHandle is what the checkout widget needs to open the gateway form.
type OrderHandle struct {
	OrderID      string  `json:"order_id"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	GatewayKeyID string  `json:"gateway_key_id"`
	Receipt      string  `json:"receipt"`
	PaymentID    uint    `json:"payment_id"`
}

func (uc *OrderUseCase) CreateOrder(ctx context.Context, input CreateOrderInput, payerID string) (*OrderHandle, error) {
	var c *entity.Case
	if input.CaseID != nil {
		found, err := uc.caseRepo.GetByID(ctx, *input.CaseID)
		if err != nil {
			return nil, lookupError("Case", err)
		}
		if found.RequesterID != payerID {
			return nil, errors.Forbidden("You can only pay for your own case", nil)
		}
		if !found.IsPendingPayment() {
			return nil, errors.NotEligible("case is not awaiting payment")
		}
		c = found
	}

	var caseFees float64
	if c != nil {
		caseFees = c.Fees
	}
	amount := service.RoundMoney(firstPositive(caseFees, input.Amount, uc.defaultFee))
	if amount <= 0 {
		return nil, errors.InvalidAmount("amount must be greater than zero")
	}

	// A retried checkout pays the order it already has.
	if c != nil {
		open, err := uc.openOrder(ctx, c.ID, payerID, amount)
		if err != nil || open != nil {
			return open, err
		}
	}

	receipt := "rcpt_" + uc.receiptID()
	notes := map[string]string{"payer_id": payerID}
	if input.CaseID != nil {
		notes["case_id"] = strconv.FormatUint(uint64(*input.CaseID), 10)
	}
	if input.Description != "" {
		notes["description"] = input.Description
	}

	order, err := uc.gateway.CreateOrder(ctx, service.GatewayOrderRequest{
		Amount:   amount,
		Currency: uc.currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		logger.Error("gateway order creation failed", "receipt", receipt, "error", err)
		return nil, errors.Internal("Failed to create payment order", err)
	}

	payment := &entity.Payment{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: uc.currency,
		Status:   entity.PaymentStatusPending,
		CaseID:   input.CaseID,
		UserID:   payerID,
		Metadata: entity.PaymentMetadata{
			Order: &entity.OrderLink{
				CaseID:      input.CaseID,
				Receipt:     receipt,
				Description: input.Description,
			},
		},
	}
	if err := uc.paymentRepo.Create(ctx, payment); err != nil {
		// A concurrent checkout for the same case got its order in first.
		if c != nil && stderrors.Is(err, repository.ErrDuplicate) {
			logger.Warn("gateway order unused, case already has an open order", "order_id", order.ID, "case_id", c.ID)
			if open, openErr := uc.openOrder(ctx, c.ID, payerID, amount); openErr != nil || open != nil {
				return open, openErr
			}
		}
		logger.Error("gateway order orphaned, payment row not persisted", "order_id", order.ID, "error", err)
		return nil, errors.Internal("Failed to record payment", err)
	}

	uc.metrics.OrderCreated(uc.currency)
	logger.Info("payment order created", "order_id", order.ID, "payer_id", payerID, "amount", amount)

	return uc.handleFor(payment), nil
}

// openOrder returns a handle on the case's pending order, or nil when there
// is none. An open order for another payer or amount blocks a new one.
func (uc *OrderUseCase) openOrder(ctx context.Context, caseID uint, payerID string, amount float64) (*OrderHandle, error) {
	open, err := uc.paymentRepo.GetPendingByCaseID(ctx, caseID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Internal("Failed to look up open orders", err)
	}

	if !open.BelongsTo(payerID) || service.RoundMoney(open.Amount) != amount {
		return nil, errors.NotEligible("case already has an open order for a different amount")
	}

	logger.Info("reusing open payment order", "order_id", open.OrderID, "case_id", caseID)
	return uc.handleFor(open), nil
}

func (uc *OrderUseCase) handleFor(payment *entity.Payment) *OrderHandle {
	var receipt string
	if payment.Metadata.Order != nil {
		receipt = payment.Metadata.Order.Receipt
	}
	return &OrderHandle{
		OrderID:      payment.OrderID,
		Amount:       payment.Amount,
		Currency:     payment.Currency,
		GatewayKeyID: uc.gateway.KeyID(),
		Receipt:      receipt,
		PaymentID:    payment.ID,
	}
}

// GetPayment returns a payment by its gateway order id for an admin or its payer.
func (uc *OrderUseCase) GetPayment(ctx context.Context, orderID, callerID string, isAdmin bool) (*entity.Payment, error) {
	payment, err := uc.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, lookupError("Payment", err)
	}
	if !isAdmin && !payment.BelongsTo(callerID) {
		return nil, errors.Forbidden("You do not have access to this payment", nil)
	}
	return payment, nil
}

// ListPayments is the admin ledger view.
func (uc *OrderUseCase) ListPayments(ctx context.Context, filter repository.PaymentFilter, limit, offset int) ([]*entity.Payment, int64, error) {
	payments, total, err := uc.paymentRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list payments", err)
	}
	return payments, total, nil
}
