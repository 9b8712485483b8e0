package usecase

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
	"casepay/internal/domain/service"
	"casepay/internal/infrastructure/metrics"
	"casepay/pkg/errors"
	"casepay/pkg/logger"
)

// Caller identifies the authenticated user behind a request.
type Caller struct {
	UID  string
	Role string
}

func (c Caller) IsAdmin() bool {
	return c.Role == entity.RoleAdmin
}

func (c Caller) IsStaff() bool {
	return c.Role == entity.RoleAdmin || c.Role == entity.RoleAdvocate
}

type CaseUseCase struct {
	caseRepo  repository.CaseRepository
	fees      service.FeeCalculator
	publisher service.CaseEventPublisher
	metrics   *metrics.PaymentMetrics
	now       func() time.Time
	publishes sync.WaitGroup
}

func NewCaseUseCase(
	caseRepo repository.CaseRepository,
	fees service.FeeCalculator,
	publisher service.CaseEventPublisher,
	paymentMetrics *metrics.PaymentMetrics,
) *CaseUseCase {
	if publisher == nil {
		publisher = service.NoopCaseEventPublisher{}
	}
	return &CaseUseCase{
		caseRepo:  caseRepo,
		fees:      fees,
		publisher: publisher,
		metrics:   paymentMetrics,
		now:       time.Now,
	}
}

type RegisterCaseInput struct {
	CaseNumber    string
	RequesterID   string
	DisputeAmount float64
	FeeWaived     bool
}

// RegisterCase prices a new case and opens it. A case with nothing to pay
// skips pending_payment entirely.
func (uc *CaseUseCase) RegisterCase(ctx context.Context, input RegisterCaseInput, actorID string) (*entity.Case, error) {
	caseNumber := strings.TrimSpace(input.CaseNumber)
	if caseNumber == "" {
		return nil, errors.BadRequest("case_number is required", nil)
	}
	if input.DisputeAmount < 0 {
		return nil, errors.InvalidAmount("dispute_amount cannot be negative")
	}

	var fees float64
	if !input.FeeWaived {
		fees = uc.fees.ComputeFee(input.DisputeAmount).Total
	}

	status := entity.CaseStatusWaitingForAction
	if fees > 0 {
		status = entity.CaseStatusPendingPayment
	}

	c := &entity.Case{
		CaseNumber:    caseNumber,
		RequesterID:   input.RequesterID,
		Fees:          fees,
		DisputeAmount: service.RoundMoney(input.DisputeAmount),
		Status:        status,
	}
	if err := uc.caseRepo.Create(ctx, c); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Conflict("case number " + caseNumber + " already exists")
		}
		return nil, errors.Internal("Failed to register case", err)
	}

	logger.Info("case registered", "case_id", c.ID, "case_number", c.CaseNumber, "fees", fees, "status", status)
	publishAsync(ctx, &uc.publishes, uc.publisher, service.CaseEvent{
		Type:       service.CaseEventRegistered,
		CaseID:     c.ID,
		CaseNumber: c.CaseNumber,
		Status:     string(c.Status),
		Amount:     fees,
		ActorID:    actorID,
		OccurredAt: uc.now(),
	})

	return c, nil
}

func (uc *CaseUseCase) GetCase(ctx context.Context, id uint, caller Caller) (*entity.Case, error) {
	c, err := uc.caseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("Case", err)
	}
	if !caller.IsStaff() && c.RequesterID != caller.UID {
		return nil, errors.Forbidden("You do not have access to this case", nil)
	}
	return c, nil
}

type TransitionCaseInput struct {
	Status entity.CaseStatus
	Note   string
}

// TransitionStatus applies a workflow move by an administrator or advocate.
// The write is conditional on the status that was read, so of two
// concurrent movers only one succeeds.
func (uc *CaseUseCase) TransitionStatus(ctx context.Context, id uint, input TransitionCaseInput, caller Caller) (*entity.Case, error) {
	if !caller.IsStaff() {
		return nil, errors.Forbidden("Only administrators and advocates can change case status", nil)
	}
	if !input.Status.Valid() {
		return nil, errors.BadRequest("unknown case status "+string(input.Status), nil)
	}

	c, err := uc.caseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("Case", err)
	}

	if c.Status == input.Status {
		return c, nil
	}
	if !entity.CanTransition(c.Status, input.Status) {
		return nil, errors.NotEligible("cannot move case from " + string(c.Status) + " to " + string(input.Status))
	}

	from := c.Status
	moved, err := uc.caseRepo.TransitionStatus(ctx, id, from, input.Status)
	if err != nil {
		return nil, errors.Internal("Failed to update case status", err)
	}
	if !moved {
		return nil, errors.Conflict("case status changed concurrently, reload and retry")
	}

	c.Status = input.Status
	uc.metrics.CaseTransitioned(string(input.Status))
	logger.Info("case status changed", "case_id", id, "from", from, "to", input.Status, "actor_id", caller.UID, "note", input.Note)

	publishAsync(ctx, &uc.publishes, uc.publisher, service.CaseEvent{
		Type:           service.CaseEventStatusChanged,
		CaseID:         c.ID,
		CaseNumber:     c.CaseNumber,
		Status:         string(c.Status),
		PreviousStatus: string(from),
		ActorID:        caller.UID,
		OccurredAt:     uc.now(),
	})

	return c, nil
}

// Drain waits for case events still being published.
func (uc *CaseUseCase) Drain() {
	uc.publishes.Wait()
}

// FeeQuote prices a dispute without creating anything.
func (uc *CaseUseCase) FeeQuote(disputeAmount float64) service.FeeQuote {
	return uc.fees.ComputeFee(disputeAmount)
}
