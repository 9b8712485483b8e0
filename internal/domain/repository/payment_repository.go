package repository

import (
	"context"
	"time"

	"casepay/internal/domain/entity"
)

type PaymentFilter struct {
	Status entity.PaymentStatus
	CaseID *uint
	UserID string
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error)

	// GetPendingByCaseID returns the case's open gateway order. A case has at
	// most one; Create reports ErrDuplicate for a second. ErrNotFound when
	// there is none.
	GetPendingByCaseID(ctx context.Context, caseID uint) (*entity.Payment, error)
	List(ctx context.Context, filter PaymentFilter, limit, offset int) ([]*entity.Payment, int64, error)

	// CompleteIfPending sets a pending payment to completed. Zero rows
	// affected means someone else already moved it; the boolean is false.
	CompleteIfPending(ctx context.Context, id uint, gatewayPaymentID, method string, completedAt time.Time) (bool, error)

	// FailIfPending marks a pending payment failed and records the payment id
	// the gateway reported. A completed row is never touched.
	FailIfPending(ctx context.Context, id uint, gatewayPaymentID string) (bool, error)

	// CreateManualCompletion advances the case out of pending_payment, fails
	// the case's open gateway order and inserts the administrator's completed
	// payment in one transaction. When the case is no longer pending_payment
	// nothing is written.
	CreateManualCompletion(ctx context.Context, payment *entity.Payment, paidAt time.Time) (bool, error)

	// ListTornWrites returns completed payments whose case is still
	// pending_payment.
	ListTornWrites(ctx context.Context, limit int) ([]*entity.Payment, error)
}
