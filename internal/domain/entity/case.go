package entity

import (
	"time"
)

type CaseStatus string

const (
	CaseStatusPendingPayment            CaseStatus = "pending_payment"
	CaseStatusWaitingForAction          CaseStatus = "waiting_for_action"
	CaseStatusNeutralsNeedsToBeAssigned CaseStatus = "neutrals_needs_to_be_assigned"
	CaseStatusConsented                 CaseStatus = "consented"
	CaseStatusSettled                   CaseStatus = "settled"
	CaseStatusClosedNoConsent           CaseStatus = "closed_no_consent"
	CaseStatusCloseNoSettlement         CaseStatus = "close_no_settlement"
	CaseStatusTemporaryNonStarter       CaseStatus = "temporary_non_starter"
	CaseStatusHold                      CaseStatus = "hold"
	CaseStatusWithdrawn                 CaseStatus = "withdrawn"
)

var caseStatuses = map[CaseStatus]struct{}{
	CaseStatusPendingPayment:            {},
	CaseStatusWaitingForAction:          {},
	CaseStatusNeutralsNeedsToBeAssigned: {},
	CaseStatusConsented:                 {},
	CaseStatusSettled:                   {},
	CaseStatusClosedNoConsent:           {},
	CaseStatusCloseNoSettlement:         {},
	CaseStatusTemporaryNonStarter:       {},
	CaseStatusHold:                      {},
	CaseStatusWithdrawn:                 {},
}

func (s CaseStatus) Valid() bool {
	_, ok := caseStatuses[s]
	return ok
}

// IsTerminal reports the statuses that read as closed. It is informational:
// the workflow may still move a case out of them.
func (s CaseStatus) IsTerminal() bool {
	switch s {
	case CaseStatusSettled, CaseStatusWithdrawn, CaseStatusClosedNoConsent, CaseStatusCloseNoSettlement:
		return true
	}
	return false
}

// CanTransition is the manual transition rule. pending_payment can be neither
// left nor entered by hand; only payment completion moves a case out of it.
// Every other pair of statuses is allowed.
func CanTransition(from, to CaseStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == CaseStatusPendingPayment || to == CaseStatusPendingPayment {
		return false
	}
	return true
}

type Case struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	CaseNumber    string     `json:"case_number" gorm:"uniqueIndex;not null;<-:create"`
	RequesterID   string     `json:"requester_id" gorm:"index;not null"`
	NeutralID     *string    `json:"neutral_id,omitempty"`
	Fees          float64    `json:"fees" gorm:"type:numeric(12,2);not null;default:0"`
	FeesPaid      float64    `json:"fees_paid" gorm:"type:numeric(12,2);not null;default:0"`
	DisputeAmount float64    `json:"dispute_amount" gorm:"type:numeric(14,2);not null;default:0"`
	Status        CaseStatus `json:"status" gorm:"type:varchar(40);index;not null"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Case) TableName() string {
	return "cases"
}

func (c *Case) IsPendingPayment() bool {
	return c.Status == CaseStatusPendingPayment
}
