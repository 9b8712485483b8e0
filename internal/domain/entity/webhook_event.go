package entity

import (
	"time"
)

type WebhookOutcome string

const (
	WebhookOutcomeApplied        WebhookOutcome = "applied"
	WebhookOutcomeAlreadyApplied WebhookOutcome = "already_applied"
	WebhookOutcomeFailedMarked   WebhookOutcome = "failed_marked"
	WebhookOutcomeIgnored        WebhookOutcome = "ignored"
	WebhookOutcomeNotFound       WebhookOutcome = "not_found"
	WebhookOutcomeDuplicate      WebhookOutcome = "duplicate"
	WebhookOutcomeError          WebhookOutcome = "error"
)

// WebhookEvent is the delivery log of gateway webhooks. EventID is the
// gateway's delivery id and is unique when present.
type WebhookEvent struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	EventID          *string        `json:"event_id,omitempty" gorm:"uniqueIndex"`
	EventType        string         `json:"event_type" gorm:"type:varchar(64);index"`
	OrderID          string         `json:"order_id,omitempty" gorm:"index"`
	GatewayPaymentID string         `json:"payment_id,omitempty"`
	Payload          string         `json:"-" gorm:"type:text"`
	SignatureValid   bool           `json:"signature_valid"`
	Outcome          WebhookOutcome `json:"outcome" gorm:"type:varchar(20)"`
	ProcessingError  string         `json:"processing_error,omitempty" gorm:"type:text"`
	ReceivedAt       time.Time      `json:"received_at"`
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// Settled reports whether the delivery was handled to a final outcome.
// Deliveries that ended in error are retried by the gateway and processed again.
func (e *WebhookEvent) Settled() bool {
	return e.ProcessedAt != nil && e.Outcome != WebhookOutcomeError
}
