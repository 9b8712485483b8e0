package service

import (
	"context"
	"time"
)

const (
	CaseEventPaymentCompleted = "case.payment_completed"
	CaseEventStatusChanged    = "case.status_changed"
	CaseEventRegistered       = "case.registered"
)

// CaseEvent is what the notice subsystem consumes to send emails and notices.
type CaseEvent struct {
	Type           string    `json:"type"`
	CaseID         uint      `json:"case_id"`
	CaseNumber     string    `json:"case_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Amount         float64   `json:"amount,omitempty"`
	Source         string    `json:"source,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type CaseEventPublisher interface {
	PublishCaseEvent(ctx context.Context, event CaseEvent) error
}

// NoopCaseEventPublisher drops events; used when no broker is configured.
type NoopCaseEventPublisher struct{}

func (NoopCaseEventPublisher) PublishCaseEvent(ctx context.Context, event CaseEvent) error {
	return nil
}
