package repository

import (
	"context"
	"time"

	"casepay/internal/domain/entity"
)

type CaseRepository interface {
	Create(ctx context.Context, c *entity.Case) error
	GetByID(ctx context.Context, id uint) (*entity.Case, error)

	// TransitionStatus moves a case from one status to another only if it is
	// still in from. It reports whether this call made the change.
	TransitionStatus(ctx context.Context, id uint, from, to entity.CaseStatus) (bool, error)

	// MarkFeesPaid is the single payment-driven edge:
	// pending_payment -> waiting_for_action with fees_paid set, guarded on
	// the case still being pending_payment.
	MarkFeesPaid(ctx context.Context, id uint, amount float64, paidAt time.Time) (bool, error)
}
