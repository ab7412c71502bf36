package domain

import (
	"time"
)

// LineItem is an optional add-on paid together with the base donation
type LineItem struct {
	BeneficiaryID string `json:"beneficiaryId"`
	AmountMinor   int64  `json:"amountMinor"`
	Label         string `json:"label,omitempty"`
}

// SplitAllocation assigns a share of the proceeds to a beneficiary
type SplitAllocation struct {
	BeneficiaryID string `json:"user_id"`
	Percentage    int    `json:"percentage"`
}

// LifecycleState is the state of the current donation session
type LifecycleState string

const (
	StateNone      LifecycleState = "NONE"
	StateCreating  LifecycleState = "CREATING"
	StateActive    LifecycleState = "ACTIVE"
	StateSettled   LifecycleState = "SETTLED"
	StateExpired   LifecycleState = "EXPIRED"
	StateCancelled LifecycleState = "CANCELLED"
	StateFailed    LifecycleState = "FAILED"
)

// StateFor maps a transaction status onto the session lifecycle
func StateFor(status TransactionStatus) LifecycleState {
	switch status {
	case TransactionStatusPending:
		return StateActive
	case TransactionStatusApproved:
		return StateSettled
	case TransactionStatusExpired:
		return StateExpired
	case TransactionStatusCancelled, TransactionStatusRefunded:
		return StateCancelled
	case TransactionStatusRejected, TransactionStatusChargeback:
		return StateFailed
	default:
		return StateNone
	}
}

// Session is the persisted "current donation" of one client scope
type Session struct {
	Campaign        string            `json:"campaign"`
	ExternalID      string            `json:"externalId"`
	Provider        string            `json:"provider"`
	State           LifecycleState    `json:"state"`
	Transaction     Transaction       `json:"transaction"`
	BaseAmountMinor int64             `json:"baseAmountMinor"`
	LineItems       []LineItem        `json:"lineItems,omitempty"`
	Split           []SplitAllocation `json:"split,omitempty"`
	DemoMode        bool              `json:"demoMode"`
	ExpiresAt       *time.Time        `json:"expiresAt,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// IsExpired is false when no expiry is known
func (s *Session) IsExpired(now time.Time) bool {
	if s == nil || s.ExpiresAt == nil {
		return false
	}
	return !now.Before(*s.ExpiresAt)
}

// ApplyStatus overwrites the status fields from a fresh provider read.
// Identifiers and amounts set at creation are kept.
func (s *Session) ApplyStatus(fresh *Transaction) error {
	if err := s.Transaction.TransitionTo(fresh.Status); err != nil {
		return err
	}
	if fresh.PaidAt != nil {
		s.Transaction.PaidAt = fresh.PaidAt
	}
	if fresh.ExpiresAt != nil {
		s.Transaction.ExpiresAt = fresh.ExpiresAt
	}
	if !fresh.UpdatedAt.IsZero() {
		s.Transaction.UpdatedAt = fresh.UpdatedAt
	}
	s.State = StateFor(s.Transaction.Status)
	return nil
}
