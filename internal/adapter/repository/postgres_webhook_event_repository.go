package repository

import (
	"context"

	"gorm.io/gorm"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
)

type postgresWebhookEventRepository struct {
	db *gorm.DB
}

func NewPostgresWebhookEventRepository(db *gorm.DB) repository.WebhookEventRepository {
	return &postgresWebhookEventRepository{db: db}
}

func (r *postgresWebhookEventRepository) Create(ctx context.Context, event *entity.WebhookEvent) error {
	return translateError(r.db.WithContext(ctx).Create(event).Error)
}

func (r *postgresWebhookEventRepository) Update(ctx context.Context, event *entity.WebhookEvent) error {
	return translateError(r.db.WithContext(ctx).Save(event).Error)
}

func (r *postgresWebhookEventRepository) GetByEventID(ctx context.Context, eventID string) (*entity.WebhookEvent, error) {
	var event entity.WebhookEvent
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error; err != nil {
		return nil, translateError(err)
	}
	return &event, nil
}
