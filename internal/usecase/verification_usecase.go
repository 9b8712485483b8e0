package usecase

import (
	"context"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
	"casepay/internal/domain/service"
	"casepay/internal/infrastructure/metrics"
	"casepay/pkg/errors"
	"casepay/pkg/logger"
)

type VerificationUseCase struct {
	paymentRepo repository.PaymentRepository
	verifier    *service.SignatureVerifier
	reconciler  *ReconcilerUseCase
	metrics     *metrics.PaymentMetrics
}

func NewVerificationUseCase(
	paymentRepo repository.PaymentRepository,
	verifier *service.SignatureVerifier,
	reconciler *ReconcilerUseCase,
	paymentMetrics *metrics.PaymentMetrics,
) *VerificationUseCase {
	return &VerificationUseCase{
		paymentRepo: paymentRepo,
		verifier:    verifier,
		reconciler:  reconciler,
		metrics:     paymentMetrics,
	}
}

type VerifyPaymentInput struct {
	OrderID   string
	PaymentID string
	Signature string
}

// VerifyClientPayment checks the signature the checkout widget returned and,
// when it holds, hands the success to the reconciler. A bad signature fails
// the pending payment so the order cannot be replayed.
func (uc *VerificationUseCase) VerifyClientPayment(ctx context.Context, input VerifyPaymentInput, callerID string) (*ReconcileResult, error) {
	payment, err := uc.paymentRepo.GetByOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, lookupError("Payment", err)
	}
	if !payment.BelongsTo(callerID) {
		return nil, errors.Forbidden("You do not have access to this payment", nil)
	}

	if !uc.verifier.VerifyCheckout(input.OrderID, input.PaymentID, input.Signature) {
		uc.metrics.SignatureFailed(SourceClient)
		logger.Warn("checkout signature mismatch", "order_id", input.OrderID, "payment_id", input.PaymentID, "user_id", callerID)

		if payment.Status == entity.PaymentStatusPending {
			if _, err := uc.reconciler.MarkPaymentFailed(ctx, payment, input.PaymentID); err != nil {
				logger.Error("failed to mark payment failed after signature mismatch", "order_id", input.OrderID, "error", err)
			}
		}
		return nil, errors.InvalidSignature("payment signature is invalid")
	}

	return uc.reconciler.ApplyPaymentSuccess(ctx, PaymentSuccess{
		OrderID:       input.OrderID,
		PaymentID:     input.PaymentID,
		GatewayAmount: payment.Amount,
		Method:        entity.PaymentMethodGateway,
		Source:        SourceClient,
	})
}
