package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/service"
	"casepay/pkg/errors"
)

func webhookBody(event, orderID, paymentID string, subunits int64) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":%d,"currency":"INR","status":"captured","method":"upi"}}}}`,
		event, paymentID, orderID, subunits))
}

func TestHandleWebhook_CapturedAppliesPayment(t *testing.T) {
	f := newFixture()
	c, p := f.pendingCase("payer-1", 5310)
	body := webhookBody(EventPaymentCaptured, p.OrderID, "pay_1", 531000)

	result, err := f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "evt_1")
	require.NoError(t, err)

	assert.Equal(t, entity.WebhookOutcomeApplied, result.Outcome)
	assert.Equal(t, entity.CaseStatusWaitingForAction, f.store.caseByID(c.ID).Status)
	assert.Equal(t, "upi", f.store.paymentByOrder(p.OrderID).PaymentMethod)
	assert.Equal(t, 1, f.store.eventsWithOutcome(entity.WebhookOutcomeApplied))
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	f := newFixture()
	c, p := f.pendingCase("payer-1", 5310)
	body := webhookBody(EventPaymentCaptured, p.OrderID, "pay_1", 531000)

	_, err := f.webhooks.HandleWebhook(context.Background(), body, service.Sign([]byte("wrong"), body), "evt_1")
	assert.True(t, errors.Is(err, errors.CodeInvalidSignature))
	assert.Equal(t, entity.CaseStatusPendingPayment, f.store.caseByID(c.ID).Status)
	assert.Equal(t, entity.PaymentStatusPending, f.store.paymentByOrder(p.OrderID).Status)

	events := f.store.recordedEvents()
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Payload, "forged bodies are not stored")
	assert.Nil(t, events[0].EventID, "an unauthenticated event id must not claim the id")
	assert.False(t, events[0].SignatureValid)
	assert.Contains(t, events[0].ProcessingError, fmt.Sprintf("%d byte body", len(body)))

	// The genuine delivery with the same id still goes through.
	result, err := f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeApplied, result.Outcome)
}

func TestHandleWebhook_NoSecretRejectsEverything(t *testing.T) {
	f := newFixture()
	_, p := f.pendingCase("payer-1", 5310)
	f.webhooks.verifier = service.NewSignatureVerifier(testKeySecret, "")
	body := webhookBody(EventPaymentCaptured, p.OrderID, "pay_1", 531000)

	_, err := f.webhooks.HandleWebhook(context.Background(), body, service.Sign(nil, body), "")
	assert.True(t, errors.Is(err, errors.CodeInvalidSignature))
	assert.Equal(t, entity.PaymentStatusPending, f.store.paymentByOrder(p.OrderID).Status)
}

func TestHandleWebhook_DuplicateEventID(t *testing.T) {
	f := newFixture()
	_, p := f.pendingCase("payer-1", 5310)
	body := webhookBody(EventPaymentCaptured, p.OrderID, "pay_1", 531000)

	_, err := f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "evt_1")
	require.NoError(t, err)

	result, err := f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeDuplicate, result.Outcome)

	// Without an event id a redelivery is still harmless.
	result, err = f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeAlreadyApplied, result.Outcome)

	f.reconciler.Drain()
	assert.Len(t, f.publisher.ofType(service.CaseEventPaymentCompleted), 1)
}

func TestHandleWebhook_FailedEvent(t *testing.T) {
	f := newFixture()
	c, p := f.pendingCase("payer-1", 5310)
	body := webhookBody(EventPaymentFailed, p.OrderID, "pay_1", 531000)

	result, err := f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "evt_f")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeFailedMarked, result.Outcome)
	assert.Equal(t, entity.PaymentStatusFailed, f.store.paymentByOrder(p.OrderID).Status)
	assert.Equal(t, entity.CaseStatusPendingPayment, f.store.caseByID(c.ID).Status)
}

func TestHandleWebhook_FailedAfterCaptureIsIgnored(t *testing.T) {
	f := newFixture()
	_, p := f.pendingCase("payer-1", 5310)
	captured := webhookBody(EventPaymentCaptured, p.OrderID, "pay_1", 531000)
	_, err := f.webhooks.HandleWebhook(context.Background(), captured, webhookSignature(captured), "evt_1")
	require.NoError(t, err)

	failed := webhookBody(EventPaymentFailed, p.OrderID, "pay_1", 531000)
	result, err := f.webhooks.HandleWebhook(context.Background(), failed, webhookSignature(failed), "evt_2")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeIgnored, result.Outcome)
	assert.Equal(t, entity.PaymentStatusCompleted, f.store.paymentByOrder(p.OrderID).Status)
}

func TestHandleWebhook_UnknownOrderAndEvents(t *testing.T) {
	f := newFixture()

	unknown := webhookBody(EventPaymentCaptured, "order_unknown", "pay_9", 100)
	result, err := f.webhooks.HandleWebhook(context.Background(), unknown, webhookSignature(unknown), "evt_u")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeNotFound, result.Outcome)

	refund := []byte(`{"event":"refund.created","payload":{}}`)
	result, err = f.webhooks.HandleWebhook(context.Background(), refund, webhookSignature(refund), "evt_r")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeIgnored, result.Outcome)
}

func TestHandleWebhook_MalformedBody(t *testing.T) {
	f := newFixture()
	body := []byte(`{"event":`)

	_, err := f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "evt_bad")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestHandleWebhook_StoreFailureIsRetryable(t *testing.T) {
	f := newFixture()
	_, p := f.pendingCase("payer-1", 5310)
	body := webhookBody(EventPaymentCaptured, p.OrderID, "pay_1", 531000)

	f.store.failPaymentRead = errStoreDown
	_, err := f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "evt_1")
	assert.True(t, errors.Is(err, errors.CodeInternal))

	// The gateway retries with the same event id once the store is back.
	f.store.failPaymentRead = nil
	result, err := f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeApplied, result.Outcome)
}

func TestHandleWebhook_CaseUpdateFailureAnswersOK(t *testing.T) {
	f := newFixture()
	_, p := f.pendingCase("payer-1", 5310)
	f.store.failMarkFeesPaid = errStoreDown
	body := webhookBody(EventPaymentCaptured, p.OrderID, "pay_1", 531000)

	result, err := f.webhooks.HandleWebhook(context.Background(), body, webhookSignature(body), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeError, result.Outcome)
	assert.Equal(t, entity.PaymentStatusCompleted, f.store.paymentByOrder(p.OrderID).Status)
}
