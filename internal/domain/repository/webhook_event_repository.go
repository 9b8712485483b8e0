package repository

import (
	"context"

	"casepay/internal/domain/entity"
)

type WebhookEventRepository interface {
	Create(ctx context.Context, event *entity.WebhookEvent) error
	Update(ctx context.Context, event *entity.WebhookEvent) error

	// GetByEventID looks a delivery up by the gateway's event id.
	// Returns ErrNotFound when it was never seen.
	GetByEventID(ctx context.Context, eventID string) (*entity.WebhookEvent, error)
}
