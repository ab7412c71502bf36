package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Donation is the durable ledger row of an initiated donation
type Donation struct {
	ID              string            `json:"id"`
	Campaign        string            `json:"campaign"`
	ExternalID      string            `json:"external_id"`
	TransactionID   string            `json:"transaction_id"`
	Provider        string            `json:"provider"`
	Method          PaymentMethod     `json:"method"`
	Status          TransactionStatus `json:"status"`
	AmountMinor     int64             `json:"amount_minor"`
	BaseAmountMinor int64             `json:"base_amount_minor"`
	Split           []SplitAllocation `json:"split,omitempty"`
	DemoMode        bool              `json:"demo_mode"`
	CustomerEmail   string            `json:"customer_email,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
}

// NewDonation builds a ledger row from a freshly persisted session
func NewDonation(s *Session, customerEmail string) (*Donation, error) {
	if s == nil || s.Transaction.ID == "" {
		return nil, errors.New("transaction id is required")
	}
	if s.Transaction.AmountMinor <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Donation{
		ID:              uuid.New().String(),
		Campaign:        s.Campaign,
		ExternalID:      s.ExternalID,
		TransactionID:   s.Transaction.ID,
		Provider:        s.Provider,
		Method:          s.Transaction.Method,
		Status:          s.Transaction.Status,
		AmountMinor:     s.Transaction.AmountMinor,
		BaseAmountMinor: s.BaseAmountMinor,
		Split:           s.Split,
		DemoMode:        s.DemoMode,
		CustomerEmail:   customerEmail,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       s.ExpiresAt,
	}, nil
}

// CampaignStats aggregates the ledger of one campaign
type CampaignStats struct {
	Campaign        string `json:"campaign"`
	DonationCount   int64  `json:"donation_count"`
	PendingCount    int64  `json:"pending_count"`
	SettledCount    int64  `json:"settled_count"`
	RaisedMinor     int64  `json:"raised_minor"`
	GoalMinor       int64  `json:"goal_minor,omitempty"`
	ProgressPercent int    `json:"progress_percent"`
}

// ComputeProgress fills ProgressPercent from RaisedMinor and GoalMinor, capped at 100
func (c *CampaignStats) ComputeProgress() {
	if c.GoalMinor <= 0 {
		c.ProgressPercent = 0
		return
	}
	p := c.RaisedMinor * 100 / c.GoalMinor
	if p > 100 {
		p = 100
	}
	c.ProgressPercent = int(p)
}
