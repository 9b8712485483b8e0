package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
)

type postgresCaseRepository struct {
	db *gorm.DB
}

func NewPostgresCaseRepository(db *gorm.DB) repository.CaseRepository {
	return &postgresCaseRepository{db: db}
}

func (r *postgresCaseRepository) Create(ctx context.Context, c *entity.Case) error {
	return translateError(r.db.WithContext(ctx).Create(c).Error)
}

func (r *postgresCaseRepository) GetByID(ctx context.Context, id uint) (*entity.Case, error) {
	var c entity.Case
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

func (r *postgresCaseRepository) TransitionStatus(ctx context.Context, id uint, from, to entity.CaseStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Case{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *postgresCaseRepository) MarkFeesPaid(ctx context.Context, id uint, amount float64, paidAt time.Time) (bool, error) {
	return markFeesPaid(r.db.WithContext(ctx), id, amount, paidAt)
}

// markFeesPaid is shared with the manual override transaction.
func markFeesPaid(db *gorm.DB, id uint, amount float64, paidAt time.Time) (bool, error) {
	result := db.Model(&entity.Case{}).
		Where("id = ? AND status = ?", id, entity.CaseStatusPendingPayment).
		Updates(map[string]interface{}{
			"status":    entity.CaseStatusWaitingForAction,
			"fees_paid": amount,
			"paid_at":   paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	}
	return err
}
