package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
)

type postgresPaymentRepository struct {
	db *gorm.DB
}

func NewPostgresPaymentRepository(db *gorm.DB) repository.PaymentRepository {
	return &postgresPaymentRepository{db: db}
}

var errCaseNotPending = errors.New("case is not pending_payment")

func (r *postgresPaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	return translateError(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *postgresPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	var payment entity.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		return nil, translateError(err)
	}
	return &payment, nil
}

func (r *postgresPaymentRepository) GetPendingByCaseID(ctx context.Context, caseID uint) (*entity.Payment, error) {
	var payment entity.Payment
	err := r.db.WithContext(ctx).
		Where("case_id = ? AND status = ?", caseID, entity.PaymentStatusPending).
		First(&payment).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &payment, nil
}

func (r *postgresPaymentRepository) List(ctx context.Context, filter repository.PaymentFilter, limit, offset int) ([]*entity.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Payment{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CaseID != nil {
		query = query.Where("case_id = ?", *filter.CaseID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []*entity.Payment
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *postgresPaymentRepository) CompleteIfPending(ctx context.Context, id uint, gatewayPaymentID, method string, completedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Payment{}).
		Where("id = ? AND status = ?", id, entity.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":             entity.PaymentStatusCompleted,
			"gateway_payment_id": gatewayPaymentID,
			"payment_method":     method,
			"completed_at":       completedAt,
		})
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *postgresPaymentRepository) FailIfPending(ctx context.Context, id uint, gatewayPaymentID string) (bool, error) {
	updates := map[string]interface{}{"status": entity.PaymentStatusFailed}
	if gatewayPaymentID != "" {
		updates["gateway_payment_id"] = gatewayPaymentID
	}

	result := r.db.WithContext(ctx).
		Model(&entity.Payment{}).
		Where("id = ? AND status = ?", id, entity.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *postgresPaymentRepository) CreateManualCompletion(ctx context.Context, payment *entity.Payment, paidAt time.Time) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		advanced, err := markFeesPaid(tx, *payment.CaseID, payment.Amount, paidAt)
		if err != nil {
			return err
		}
		if !advanced {
			return errCaseNotPending
		}

		// The manual entry supersedes whatever checkout was still open.
		err = tx.Model(&entity.Payment{}).
			Where("case_id = ? AND status = ?", *payment.CaseID, entity.PaymentStatusPending).
			Update("status", entity.PaymentStatusFailed).Error
		if err != nil {
			return err
		}
		return tx.Create(payment).Error
	})

	if errors.Is(err, errCaseNotPending) {
		return false, nil
	}
	if err != nil {
		return false, translateError(err)
	}
	return true, nil
}

func (r *postgresPaymentRepository) ListTornWrites(ctx context.Context, limit int) ([]*entity.Payment, error) {
	var payments []*entity.Payment
	err := r.db.WithContext(ctx).
		Joins("JOIN cases ON cases.id = payments.case_id").
		Where("payments.status = ? AND cases.status = ?", entity.PaymentStatusCompleted, entity.CaseStatusPendingPayment).
		Order("payments.completed_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
