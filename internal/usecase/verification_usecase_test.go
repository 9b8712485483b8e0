package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepay/internal/domain/entity"
	"casepay/pkg/errors"
)

func TestVerifyClientPayment_ValidSignature(t *testing.T) {
	f := newFixture()
	c, p := f.pendingCase("payer-1", 5310)

	result, err := f.verification.VerifyClientPayment(context.Background(), VerifyPaymentInput{
		OrderID:   p.OrderID,
		PaymentID: "pay_1",
		Signature: checkoutSignature(p.OrderID, "pay_1"),
	}, "payer-1")
	require.NoError(t, err)

	assert.True(t, result.CaseAdvanced)
	assert.Equal(t, entity.CaseStatusWaitingForAction, f.store.caseByID(c.ID).Status)
	assert.Equal(t, entity.PaymentMethodGateway, f.store.paymentByOrder(p.OrderID).PaymentMethod)
}

func TestVerifyClientPayment_TamperedSignatureFailsPayment(t *testing.T) {
	f := newFixture()
	c, p := f.pendingCase("payer-1", 5310)

	_, err := f.verification.VerifyClientPayment(context.Background(), VerifyPaymentInput{
		OrderID:   p.OrderID,
		PaymentID: "pay_1",
		Signature: checkoutSignature(p.OrderID, "pay_other"),
	}, "payer-1")
	assert.True(t, errors.Is(err, errors.CodeInvalidSignature))

	payment := f.store.paymentByOrder(p.OrderID)
	assert.Equal(t, entity.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "pay_1", *payment.GatewayPaymentID)
	assert.Equal(t, entity.CaseStatusPendingPayment, f.store.caseByID(c.ID).Status)
}

func TestVerifyClientPayment_BadSignatureNeverTouchesCompleted(t *testing.T) {
	f := newFixture()
	_, p := f.pendingCase("payer-1", 5310)

	_, err := f.verification.VerifyClientPayment(context.Background(), VerifyPaymentInput{
		OrderID: p.OrderID, PaymentID: "pay_1", Signature: checkoutSignature(p.OrderID, "pay_1"),
	}, "payer-1")
	require.NoError(t, err)

	_, err = f.verification.VerifyClientPayment(context.Background(), VerifyPaymentInput{
		OrderID: p.OrderID, PaymentID: "pay_1", Signature: "deadbeef",
	}, "payer-1")
	assert.True(t, errors.Is(err, errors.CodeInvalidSignature))
	assert.Equal(t, entity.PaymentStatusCompleted, f.store.paymentByOrder(p.OrderID).Status)
}

func TestVerifyClientPayment_RepeatIsAlreadyApplied(t *testing.T) {
	f := newFixture()
	_, p := f.pendingCase("payer-1", 5310)
	in := VerifyPaymentInput{OrderID: p.OrderID, PaymentID: "pay_1", Signature: checkoutSignature(p.OrderID, "pay_1")}

	_, err := f.verification.VerifyClientPayment(context.Background(), in, "payer-1")
	require.NoError(t, err)

	result, err := f.verification.VerifyClientPayment(context.Background(), in, "payer-1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyApplied)
}

func TestVerifyClientPayment_OtherPayer(t *testing.T) {
	f := newFixture()
	_, p := f.pendingCase("payer-1", 5310)

	_, err := f.verification.VerifyClientPayment(context.Background(), VerifyPaymentInput{
		OrderID: p.OrderID, PaymentID: "pay_1", Signature: checkoutSignature(p.OrderID, "pay_1"),
	}, "payer-2")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	assert.Equal(t, entity.PaymentStatusPending, f.store.paymentByOrder(p.OrderID).Status)
}

func TestVerifyClientPayment_UnknownOrder(t *testing.T) {
	f := newFixture()

	_, err := f.verification.VerifyClientPayment(context.Background(), VerifyPaymentInput{
		OrderID: "order_nope", PaymentID: "pay_1", Signature: checkoutSignature("order_nope", "pay_1"),
	}, "payer-1")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
