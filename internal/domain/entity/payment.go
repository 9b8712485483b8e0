package entity

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

const (
	PaymentMethodGateway = "razorpay"
	PaymentMethodManual  = "manual"
)

// PaymentMetadata is a closed sum: exactly one of its members is set,
// depending on how the payment row came to exist.
type PaymentMetadata struct {
	Order  *OrderLink   `json:"order,omitempty"`
	Manual *ManualEntry `json:"manual,omitempty"`
}

// OrderLink is attached to rows minted by the order issuer.
type OrderLink struct {
	CaseID      *uint  `json:"case_id,omitempty"`
	Receipt     string `json:"receipt"`
	Description string `json:"description,omitempty"`
}

// ManualEntry is attached to rows an administrator marked paid.
type ManualEntry struct {
	Notes    string    `json:"notes,omitempty"`
	MarkedBy string    `json:"marked_by"`
	MarkedAt time.Time `json:"marked_at"`
}

type Payment struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	OrderID          string          `json:"order_id" gorm:"uniqueIndex;not null"`
	GatewayPaymentID *string         `json:"payment_id,omitempty" gorm:"uniqueIndex"`
	Amount           float64         `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency         string          `json:"currency" gorm:"type:varchar(8);not null"`
	Status           PaymentStatus   `json:"status" gorm:"type:varchar(20);index;not null"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	TransactionID    string          `json:"transaction_id,omitempty"`
	MarkedBy         string          `json:"marked_by,omitempty"`
	CaseID           *uint           `json:"case_id,omitempty" gorm:"index;uniqueIndex:idx_payments_open_case,where:status = 'pending'"`
	UserID           string          `json:"user_id" gorm:"index;not null"`
	Metadata         PaymentMetadata `json:"metadata" gorm:"type:jsonb;serializer:json"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BelongsTo(userID string) bool {
	return p.UserID != "" && p.UserID == userID
}
