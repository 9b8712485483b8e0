package usecase

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
	"casepay/internal/domain/service"
	"casepay/internal/infrastructure/metrics"
	"casepay/pkg/errors"
	"casepay/pkg/logger"
)

const (
	SourceClient  = "client"
	SourceWebhook = "webhook"
	SourceManual  = "manual"
	SourceSweep   = "sweep"
)

// PaymentSuccess is a verified success event from either gate.
type PaymentSuccess struct {
	OrderID   string
	PaymentID string
	Method    string
	Source    string

	// GatewayAmount is what the gateway reported, if anything. It is only
	// compared against the stored amount; the stored amount is what settles.
	GatewayAmount float64
}

type ManualOverrideInput struct {
	CaseID        uint
	Amount        float64
	Note          string
	TransactionID string
}

type ReconcileResult struct {
	AlreadyApplied bool
	CaseAdvanced   bool
	Payment        *entity.Payment
	Case           *entity.Case
}

type ReconcilerUseCase struct {
	caseRepo    repository.CaseRepository
	paymentRepo repository.PaymentRepository
	publisher   service.CaseEventPublisher
	metrics     *metrics.PaymentMetrics
	defaultFee  float64
	currency    string
	now         func() time.Time
	publishes   sync.WaitGroup
}

func NewReconcilerUseCase(
	caseRepo repository.CaseRepository,
	paymentRepo repository.PaymentRepository,
	publisher service.CaseEventPublisher,
	paymentMetrics *metrics.PaymentMetrics,
	defaultFee float64,
	currency string,
) *ReconcilerUseCase {
	if publisher == nil {
		publisher = service.NoopCaseEventPublisher{}
	}
	return &ReconcilerUseCase{
		caseRepo:    caseRepo,
		paymentRepo: paymentRepo,
		publisher:   publisher,
		metrics:     paymentMetrics,
		defaultFee:  defaultFee,
		currency:    currency,
		now:         time.Now,
	}
}

// ApplyPaymentSuccess completes the payment behind OrderID at most once and,
// only for the caller that wins that transition, advances its case out of
// pending_payment. Repeats and losers of a race get AlreadyApplied.
func (uc *ReconcilerUseCase) ApplyPaymentSuccess(ctx context.Context, in PaymentSuccess) (*ReconcileResult, error) {
	started := time.Now()
	log := logger.With("order_id", in.OrderID, "payment_id", in.PaymentID, "source", in.Source)

	payment, err := uc.paymentRepo.GetByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, lookupError("Payment", err)
	}

	if payment.Status == entity.PaymentStatusCompleted {
		uc.metrics.Reconciled(in.Source, "already_applied", started)
		return uc.alreadyApplied(ctx, payment), nil
	}
	if payment.Status != entity.PaymentStatusPending {
		uc.strandedCapture(payment, in)
		uc.metrics.Reconciled(in.Source, "not_eligible", started)
		return nil, errors.NotEligible("payment is " + string(payment.Status) + "; start a new order")
	}

	if in.GatewayAmount > 0 && service.RoundMoney(in.GatewayAmount) != service.RoundMoney(payment.Amount) {
		log.Warn("gateway amount differs from order amount", "gateway_amount", in.GatewayAmount, "order_amount", payment.Amount)
	}

	method := in.Method
	if method == "" {
		method = entity.PaymentMethodGateway
	}

	completedAt := uc.now()
	won, err := uc.paymentRepo.CompleteIfPending(ctx, payment.ID, in.PaymentID, method, completedAt)
	if err != nil {
		uc.metrics.Reconciled(in.Source, "error", started)
		return nil, errors.Internal("Failed to complete payment", err)
	}

	if !won {
		current, err := uc.paymentRepo.GetByOrderID(ctx, in.OrderID)
		if err != nil {
			return nil, errors.Internal("Failed to re-read payment", err)
		}
		if current.Status == entity.PaymentStatusCompleted {
			log.Info("lost completion race, payment already completed")
			uc.metrics.Reconciled(in.Source, "already_applied", started)
			return uc.alreadyApplied(ctx, current), nil
		}
		uc.strandedCapture(current, in)
		uc.metrics.Reconciled(in.Source, "not_eligible", started)
		return nil, errors.NotEligible("payment is " + string(current.Status) + "; start a new order")
	}

	payment.Status = entity.PaymentStatusCompleted
	payment.GatewayPaymentID = &in.PaymentID
	payment.PaymentMethod = method
	payment.CompletedAt = &completedAt

	result := &ReconcileResult{Payment: payment}
	if payment.CaseID == nil {
		log.Info("payment completed without a case")
		uc.metrics.Reconciled(in.Source, "applied", started)
		return result, nil
	}

	c, advanced, err := uc.advanceCase(ctx, payment, completedAt)
	if err != nil {
		log.Error("payment completed but case update failed", "case_id", *payment.CaseID, "error", err)
		uc.metrics.TornWrite("detected")
		uc.metrics.Reconciled(in.Source, "case_update_failed", started)
		return nil, errors.PaymentVerifiedCaseUpdateFailed(*payment.CaseID, err)
	}

	result.Case = c
	result.CaseAdvanced = advanced
	if advanced {
		uc.publishPaymentCompleted(ctx, c, payment.Amount, in.Source, "")
	}

	log.Info("payment completed", "case_id", *payment.CaseID, "case_advanced", advanced)
	uc.metrics.Reconciled(in.Source, "applied", started)
	return result, nil
}

// strandedCapture raises a verified gateway success that arrived for an
// order already closed. The money was taken but nothing applies it, so an
// operator has to refund it or enter it by hand.
func (uc *ReconcilerUseCase) strandedCapture(payment *entity.Payment, in PaymentSuccess) {
	var caseID uint
	if payment.CaseID != nil {
		caseID = *payment.CaseID
	}
	uc.metrics.StrandedCapture(in.Source)
	logger.Error("gateway success for a closed order, refund or record it manually",
		"order_id", payment.OrderID,
		"payment_id", in.PaymentID,
		"order_status", payment.Status,
		"case_id", caseID,
		"source", in.Source,
	)
}

// MarkPaymentFailed records a gateway payment id against a pending payment
// and fails it. Completed payments are left alone.
func (uc *ReconcilerUseCase) MarkPaymentFailed(ctx context.Context, payment *entity.Payment, gatewayPaymentID string) (bool, error) {
	failed, err := uc.paymentRepo.FailIfPending(ctx, payment.ID, gatewayPaymentID)
	if err != nil {
		return false, errors.Internal("Failed to mark payment failed", err)
	}
	if failed {
		payment.Status = entity.PaymentStatusFailed
		if gatewayPaymentID != "" {
			payment.GatewayPaymentID = &gatewayPaymentID
		}
		logger.Info("payment marked failed", "order_id", payment.OrderID, "payment_id", gatewayPaymentID)
	}
	return failed, nil
}

// ApplyManualOverride lets an administrator settle a case's fee outside the
// gateway. The case guard and the payment insert share one transaction, so a
// rejected override leaves no payment row behind.
func (uc *ReconcilerUseCase) ApplyManualOverride(ctx context.Context, in ManualOverrideInput, adminID string) (*ReconcileResult, error) {
	started := time.Now()

	c, err := uc.caseRepo.GetByID(ctx, in.CaseID)
	if err != nil {
		return nil, lookupError("Case", err)
	}
	if !c.IsPendingPayment() {
		uc.metrics.Reconciled(SourceManual, "not_eligible", started)
		return nil, errors.NotEligible("case is not awaiting payment")
	}

	amount := firstPositive(in.Amount, c.Fees, uc.defaultFee)
	if amount <= 0 {
		return nil, errors.InvalidAmount("amount must be greater than zero")
	}

	now := uc.now()
	caseID := c.ID
	payment := &entity.Payment{
		OrderID:       "manual_" + uuid.NewString(),
		Amount:        service.RoundMoney(amount),
		Currency:      uc.currency,
		Status:        entity.PaymentStatusCompleted,
		PaymentMethod: entity.PaymentMethodManual,
		TransactionID: in.TransactionID,
		MarkedBy:      adminID,
		CaseID:        &caseID,
		UserID:        c.RequesterID,
		Metadata: entity.PaymentMetadata{
			Manual: &entity.ManualEntry{
				Notes:    in.Note,
				MarkedBy: adminID,
				MarkedAt: now,
			},
		},
		CompletedAt: &now,
	}

	applied, err := uc.paymentRepo.CreateManualCompletion(ctx, payment, now)
	if err != nil {
		uc.metrics.Reconciled(SourceManual, "error", started)
		return nil, errors.Internal("Failed to record manual payment", err)
	}
	if !applied {
		uc.metrics.Reconciled(SourceManual, "not_eligible", started)
		return nil, errors.NotEligible("case is not awaiting payment")
	}

	updated, err := uc.caseRepo.GetByID(ctx, c.ID)
	if err != nil {
		logger.Warn("manual payment applied but case re-read failed", "case_id", c.ID, "error", err)
		c.Status = entity.CaseStatusWaitingForAction
		c.FeesPaid = payment.Amount
		c.PaidAt = &now
		updated = c
	}

	uc.publishPaymentCompleted(ctx, updated, payment.Amount, SourceManual, adminID)
	logger.Info("case marked paid manually", "case_id", c.ID, "admin_id", adminID, "amount", payment.Amount)
	uc.metrics.Reconciled(SourceManual, "applied", started)

	return &ReconcileResult{Payment: payment, Case: updated, CaseAdvanced: true}, nil
}

// ResumeTornWrites re-drives the case half of reconciliations whose payment
// completed but whose case never left pending_payment.
func (uc *ReconcilerUseCase) ResumeTornWrites(ctx context.Context, limit int) (int, error) {
	payments, err := uc.paymentRepo.ListTornWrites(ctx, limit)
	if err != nil {
		return 0, errors.Internal("Failed to list torn writes", err)
	}

	resumed := 0
	var errs []error
	for _, payment := range payments {
		if payment.CaseID == nil {
			continue
		}

		paidAt := uc.now()
		if payment.CompletedAt != nil {
			paidAt = *payment.CompletedAt
		}

		c, advanced, err := uc.advanceCase(ctx, payment, paidAt)
		if err != nil {
			logger.Error("torn write resume failed", "order_id", payment.OrderID, "case_id", *payment.CaseID, "error", err)
			uc.metrics.TornWrite("resume_failed")
			errs = append(errs, err)
			continue
		}
		if advanced {
			resumed++
			uc.metrics.TornWrite("resumed")
			uc.publishPaymentCompleted(ctx, c, payment.Amount, SourceSweep, "")
			logger.Info("torn write resumed", "order_id", payment.OrderID, "case_id", c.ID)
		}
	}

	if len(errs) > 0 {
		return resumed, errors.Internal("Some torn writes could not be resumed", stderrors.Join(errs...))
	}
	return resumed, nil
}

// StartTornWriteSweep runs ResumeTornWrites on every tick until ctx ends.
func (uc *ReconcilerUseCase) StartTornWriteSweep(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("torn write sweep started", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("torn write sweep stopped")
			return
		case <-ticker.C:
			if _, err := uc.ResumeTornWrites(ctx, batchSize); err != nil {
				logger.Error("torn write sweep error", "error", err)
			}
		}
	}
}

// advanceCase applies the guarded pending_payment -> waiting_for_action edge.
// advanced is false when the case had already left pending_payment, which is
// not an error: a manual override may have won the race.
func (uc *ReconcilerUseCase) advanceCase(ctx context.Context, payment *entity.Payment, paidAt time.Time) (*entity.Case, bool, error) {
	caseID := *payment.CaseID

	advanced, err := uc.caseRepo.MarkFeesPaid(ctx, caseID, payment.Amount, paidAt)
	if err != nil {
		return nil, false, err
	}

	c, err := uc.caseRepo.GetByID(ctx, caseID)
	if err != nil {
		if advanced {
			logger.Warn("case advanced but re-read failed", "case_id", caseID, "error", err)
			return &entity.Case{ID: caseID, Status: entity.CaseStatusWaitingForAction, FeesPaid: payment.Amount}, true, nil
		}
		return nil, false, err
	}

	if !advanced {
		if c.IsPendingPayment() {
			return nil, false, stderrors.New("case is still pending_payment after guarded update")
		}
		logger.Warn("case already past pending_payment, payment did not advance it",
			"case_id", caseID, "case_status", c.Status, "order_id", payment.OrderID)
	} else {
		uc.metrics.CaseTransitioned(string(entity.CaseStatusWaitingForAction))
	}

	return c, advanced, nil
}

func (uc *ReconcilerUseCase) alreadyApplied(ctx context.Context, payment *entity.Payment) *ReconcileResult {
	result := &ReconcileResult{AlreadyApplied: true, Payment: payment}
	if payment.CaseID != nil {
		if c, err := uc.caseRepo.GetByID(ctx, *payment.CaseID); err == nil {
			result.Case = c
		}
	}
	return result
}

// Drain waits for case events still being published.
func (uc *ReconcilerUseCase) Drain() {
	uc.publishes.Wait()
}

func (uc *ReconcilerUseCase) publishPaymentCompleted(ctx context.Context, c *entity.Case, amount float64, source, actorID string) {
	publishAsync(ctx, &uc.publishes, uc.publisher, service.CaseEvent{
		Type:           service.CaseEventPaymentCompleted,
		CaseID:         c.ID,
		CaseNumber:     c.CaseNumber,
		Status:         string(c.Status),
		PreviousStatus: string(entity.CaseStatusPendingPayment),
		Amount:         amount,
		Source:         source,
		ActorID:        actorID,
		OccurredAt:     uc.now(),
	})
}
