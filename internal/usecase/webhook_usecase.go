package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
	"casepay/internal/domain/service"
	"casepay/internal/infrastructure/metrics"
	"casepay/pkg/errors"
	"casepay/pkg/logger"
)

const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentFailed     = "payment.failed"
)

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookPaymentEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type webhookPaymentEntity struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
}

func (p *webhookPayload) orderID() string {
	if id := p.Payload.Payment.Entity.OrderID; id != "" {
		return id
	}
	return p.Payload.Order.Entity.ID
}

type WebhookResult struct {
	EventType string                `json:"event"`
	Outcome   entity.WebhookOutcome `json:"outcome"`
}

type WebhookUseCase struct {
	paymentRepo repository.PaymentRepository
	eventRepo   repository.WebhookEventRepository
	verifier    *service.SignatureVerifier
	reconciler  *ReconcilerUseCase
	metrics     *metrics.PaymentMetrics
	now         func() time.Time
}

func NewWebhookUseCase(
	paymentRepo repository.PaymentRepository,
	eventRepo repository.WebhookEventRepository,
	verifier *service.SignatureVerifier,
	reconciler *ReconcilerUseCase,
	paymentMetrics *metrics.PaymentMetrics,
) *WebhookUseCase {
	return &WebhookUseCase{
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		verifier:    verifier,
		reconciler:  reconciler,
		metrics:     paymentMetrics,
		now:         time.Now,
	}
}

// HandleWebhook authenticates one gateway delivery and applies it. The
// returned error is non-nil only for a bad signature, an unparsable body or
// a store failure; everything else is reported through the outcome.
func (uc *WebhookUseCase) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (*WebhookResult, error) {
	if !uc.verifier.VerifyWebhook(body, signature) {
		uc.metrics.SignatureFailed(SourceWebhook)
		if !uc.verifier.WebhookConfigured() {
			logger.Error("webhook rejected, no webhook secret configured")
		} else {
			logger.Warn("webhook signature mismatch", "event_id", eventID)
		}
		// Unauthenticated bodies are not kept, only a fingerprint.
		digest := sha256.Sum256(body)
		uc.record(ctx, &entity.WebhookEvent{
			Outcome:         entity.WebhookOutcomeError,
			ProcessingError: fmt.Sprintf("invalid signature: %d byte body, sha256 %s", len(body), hex.EncodeToString(digest[:])),
			ReceivedAt:      uc.now(),
		})
		return nil, errors.InvalidSignature("webhook signature is invalid")
	}

	event, duplicate := uc.begin(ctx, body, eventID)
	if duplicate {
		logger.Info("duplicate webhook delivery", "event_id", eventID)
		uc.metrics.WebhookHandled(event.EventType, string(entity.WebhookOutcomeDuplicate))
		return &WebhookResult{EventType: event.EventType, Outcome: entity.WebhookOutcomeDuplicate}, nil
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		uc.finish(ctx, event, entity.WebhookOutcomeError, err)
		return nil, errors.BadRequest("Malformed webhook payload", err)
	}
	event.EventType = payload.Event
	event.OrderID = payload.orderID()
	event.GatewayPaymentID = payload.Payload.Payment.Entity.ID

	outcome, err := uc.dispatch(ctx, &payload)
	uc.finish(ctx, event, outcome, err)
	uc.metrics.WebhookHandled(payload.Event, string(outcome))

	if err != nil && errors.Is(err, errors.CodeInternal) {
		return nil, err
	}
	return &WebhookResult{EventType: payload.Event, Outcome: outcome}, nil
}

func (uc *WebhookUseCase) dispatch(ctx context.Context, payload *webhookPayload) (entity.WebhookOutcome, error) {
	entityData := payload.Payload.Payment.Entity
	orderID := payload.orderID()
	log := logger.With("event", payload.Event, "order_id", orderID, "payment_id", entityData.ID)

	switch payload.Event {
	case EventPaymentCaptured, EventPaymentAuthorized:
		method := entityData.Method
		if method == "" {
			method = entity.PaymentMethodGateway
		}

		result, err := uc.reconciler.ApplyPaymentSuccess(ctx, PaymentSuccess{
			OrderID:       orderID,
			PaymentID:     entityData.ID,
			GatewayAmount: service.FromSubunits(entityData.Amount),
			Method:        method,
			Source:        SourceWebhook,
		})
		switch {
		case err == nil && result.AlreadyApplied:
			return entity.WebhookOutcomeAlreadyApplied, nil
		case err == nil:
			return entity.WebhookOutcomeApplied, nil
		case errors.Is(err, errors.CodeNotFound):
			log.Warn("webhook for unknown order")
			return entity.WebhookOutcomeNotFound, err
		case errors.Is(err, errors.CodeNotEligible):
			log.Warn("webhook success for a payment that is no longer pending", "error", err)
			return entity.WebhookOutcomeIgnored, err
		case errors.Is(err, errors.CodePaymentVerifiedCaseUpdateFailed):
			// The payment side is durable; the sweep finishes the case.
			log.Error("webhook applied payment but case update failed", "error", err)
			return entity.WebhookOutcomeError, err
		default:
			log.Error("webhook reconciliation failed", "error", err)
			return entity.WebhookOutcomeError, err
		}

	case EventPaymentFailed:
		payment, err := uc.paymentRepo.GetByOrderID(ctx, orderID)
		if err != nil {
			appErr := lookupError("Payment", err)
			if errors.Is(appErr, errors.CodeNotFound) {
				log.Warn("payment.failed for unknown order")
				return entity.WebhookOutcomeNotFound, appErr
			}
			return entity.WebhookOutcomeError, appErr
		}
		if payment.Status != entity.PaymentStatusPending {
			log.Info("payment.failed ignored, payment not pending", "status", payment.Status)
			return entity.WebhookOutcomeIgnored, nil
		}
		failed, err := uc.reconciler.MarkPaymentFailed(ctx, payment, entityData.ID)
		if err != nil {
			return entity.WebhookOutcomeError, err
		}
		if !failed {
			return entity.WebhookOutcomeIgnored, nil
		}
		return entity.WebhookOutcomeFailedMarked, nil

	default:
		log.Debug("webhook event ignored")
		return entity.WebhookOutcomeIgnored, nil
	}
}

// begin opens the delivery log row. A delivery whose event id already
// settled is reported as a duplicate and not dispatched again.
func (uc *WebhookUseCase) begin(ctx context.Context, body []byte, eventID string) (*entity.WebhookEvent, bool) {
	event := &entity.WebhookEvent{
		Payload:        string(body),
		SignatureValid: true,
		ReceivedAt:     uc.now(),
	}
	if eventID == "" {
		uc.record(ctx, event)
		return event, false
	}

	existing, err := uc.eventRepo.GetByEventID(ctx, eventID)
	switch {
	case err == nil && existing.Settled():
		return existing, true
	case err == nil:
		existing.Payload = event.Payload
		existing.SignatureValid = true
		existing.ReceivedAt = event.ReceivedAt
		return existing, false
	case !stderrors.Is(err, repository.ErrNotFound):
		logger.Error("webhook event lookup failed", "event_id", eventID, "error", err)
	}

	event.EventID = &eventID
	if err := uc.eventRepo.Create(ctx, event); err != nil {
		// Lost a race with a concurrent delivery of the same event.
		if existing, lookupErr := uc.eventRepo.GetByEventID(ctx, eventID); lookupErr == nil {
			return existing, existing.Settled()
		}
		logger.Error("failed to record webhook event", "event_id", eventID, "error", err)
		event.ID = 0
	}
	return event, false
}

func (uc *WebhookUseCase) finish(ctx context.Context, event *entity.WebhookEvent, outcome entity.WebhookOutcome, cause error) {
	processedAt := uc.now()
	event.Outcome = outcome
	event.ProcessedAt = &processedAt
	event.ProcessingError = ""
	if cause != nil {
		event.ProcessingError = cause.Error()
	}

	if event.ID == 0 {
		return
	}
	if err := uc.eventRepo.Update(ctx, event); err != nil {
		logger.Error("failed to update webhook event", "id", event.ID, "error", err)
	}
}

func (uc *WebhookUseCase) record(ctx context.Context, event *entity.WebhookEvent) {
	if err := uc.eventRepo.Create(ctx, event); err != nil {
		logger.Error("failed to record webhook event", "error", err)
		event.ID = 0
	}
}
