package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/money"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/service"
)

// Amount is a major-unit amount sent either as a JSON number (55.5) or a
// string ("55,50"). It holds the value in minor units.
type Amount int64

// UnmarshalJSON accepts numbers and strings
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		minor, err := money.Parse(s)
		if err != nil {
			return err
		}
		*a = Amount(minor)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %s", money.ErrInvalidAmount, string(b))
	}
	if f < 0 {
		return fmt.Errorf("%w: negative amount %s", money.ErrInvalidAmount, string(b))
	}
	*a = Amount(money.FromFloat(f))
	return nil
}

// MarshalJSON renders the major-unit value
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(money.ToMajor(int64(a)).StringFixed(2)), nil
}

// Minor returns the amount in cents
func (a Amount) Minor() int64 {
	return int64(a)
}

// LineItemRequest is an explicit add-on line with its own beneficiary
type LineItemRequest struct {
	BeneficiaryID string `json:"beneficiaryId" binding:"required"`
	Amount        Amount `json:"amount"`
	Label         string `json:"label,omitempty"`
}

// CreateDonationRequest is the body of POST /donations
type CreateDonationRequest struct {
	Amount        Amount            `json:"amount"`
	Items         []LineItemRequest `json:"items,omitempty" binding:"omitempty,dive"`
	Addons        []string          `json:"addons,omitempty"`
	Customer      *domain.Customer  `json:"customer,omitempty"`
	PaymentMethod string            `json:"paymentMethod,omitempty"`
	CardToken     string            `json:"cardToken,omitempty"`
	Installments  int               `json:"installments,omitempty" binding:"omitempty,min=1,max=12"`
	Description   string            `json:"description,omitempty"`
	ExternalID    string            `json:"externalId,omitempty" binding:"omitempty,max=128"`
	Address       *domain.Address   `json:"address,omitempty"`
	UTM           *domain.UTM       `json:"utm,omitempty"`
}

// ToIntent converts the request to the service intent
func (r *CreateDonationRequest) ToIntent() *service.DonationIntent {
	items := make([]domain.LineItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.LineItem{
			BeneficiaryID: it.BeneficiaryID,
			AmountMinor:   it.Amount.Minor(),
			Label:         it.Label,
		})
	}

	return &service.DonationIntent{
		BaseAmountMinor: r.Amount.Minor(),
		LineItems:       items,
		AddonIDs:        r.Addons,
		Customer:        r.Customer,
		Method:          domain.PaymentMethod(r.PaymentMethod),
		CardToken:       r.CardToken,
		Installments:    r.Installments,
		Description:     r.Description,
		ExternalID:      r.ExternalID,
		Optional: domain.OptionalFields{
			Address: r.Address,
			UTM:     r.UTM,
		},
	}
}

// DonationResponse is the flat donation reply. On failure only Success,
// Error and the validation details are set.
type DonationResponse struct {
	Success         bool                     `json:"success"`
	TransactionID   string                   `json:"transactionId,omitempty"`
	ExternalID      string                   `json:"externalId,omitempty"`
	Status          domain.TransactionStatus `json:"status,omitempty"`
	State           domain.LifecycleState    `json:"state,omitempty"`
	Amount          *Amount                  `json:"amount,omitempty"`
	PaymentArtifact *domain.PaymentArtifact  `json:"paymentArtifact,omitempty"`
	PixCode         string                   `json:"pixCode,omitempty"`
	ExpiresAt       *time.Time               `json:"expiresAt,omitempty"`
	Split           []domain.SplitAllocation `json:"split,omitempty"`
	DemoMode        bool                     `json:"demoMode"`

	Error     string  `json:"error,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Field     string  `json:"field,omitempty"`
	Shortfall *Amount `json:"shortfall,omitempty"`
}

// FromDonationResult converts a successful initiation
func FromDonationResult(r *service.DonationResult) *DonationResponse {
	amount := Amount(r.AmountMinor)
	artifact := r.Artifact
	resp := &DonationResponse{
		Success:         r.Success,
		TransactionID:   r.TransactionID,
		ExternalID:      r.ExternalID,
		Status:          r.Status,
		State:           r.State,
		Amount:          &amount,
		PaymentArtifact: &artifact,
		ExpiresAt:       r.ExpiresAt,
		Split:           r.Split,
		DemoMode:        r.DemoMode,
	}
	if artifact.Pix != nil {
		resp.PixCode = artifact.Pix.Code
	}
	return resp
}

// NewDonationError builds the flat failure reply
func NewDonationError(message string) *DonationResponse {
	return &DonationResponse{Success: false, Error: message}
}

// StatusResponse is the reply of GET /donations/current
type StatusResponse struct {
	Success         bool                     `json:"success"`
	Available       bool                     `json:"available"`
	TransactionID   string                   `json:"transactionId,omitempty"`
	ExternalID      string                   `json:"externalId,omitempty"`
	Status          domain.TransactionStatus `json:"status,omitempty"`
	State           domain.LifecycleState    `json:"state,omitempty"`
	Changed         bool                     `json:"changed"`
	Expired         bool                     `json:"expired"`
	Amount          *Amount                  `json:"amount,omitempty"`
	PaymentArtifact *domain.PaymentArtifact  `json:"paymentArtifact,omitempty"`
	ExpiresAt       *time.Time               `json:"expiresAt,omitempty"`
	PaidAt          *time.Time               `json:"paidAt,omitempty"`
	DemoMode        bool                     `json:"demoMode"`
}

// FromStatusResult converts a status refresh
func FromStatusResult(r *service.StatusResult) *StatusResponse {
	resp := &StatusResponse{
		Success:   true,
		Available: r.Available,
		Changed:   r.Changed,
		Expired:   r.Expired,
	}
	if r.Session == nil {
		return resp
	}

	s := r.Session
	amount := Amount(s.Transaction.AmountMinor)
	artifact := s.Transaction.Artifact
	resp.TransactionID = s.Transaction.ID
	resp.ExternalID = s.ExternalID
	resp.Status = s.Transaction.Status
	resp.State = s.State
	resp.Amount = &amount
	resp.PaymentArtifact = &artifact
	resp.ExpiresAt = s.ExpiresAt
	resp.PaidAt = s.Transaction.PaidAt
	resp.DemoMode = s.DemoMode
	return resp
}

// CardTokenResponse is the reply of POST /card-tokens
type CardTokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AddonResponse is one entry of the add-on catalogue
type AddonResponse struct {
	ID            string `json:"id"`
	Amount        Amount `json:"amount"`
	BeneficiaryID string `json:"beneficiaryId"`
	Label         string `json:"label,omitempty"`
}

// CampaignResponse is the reply of GET /campaign
type CampaignResponse struct {
	Campaign        string          `json:"campaign"`
	Raised          Amount          `json:"raised"`
	RaisedFormatted string          `json:"raisedFormatted"`
	Goal            Amount          `json:"goal,omitempty"`
	ProgressPercent int             `json:"progressPercent"`
	DonationCount   int64           `json:"donationCount"`
	SettledCount    int64           `json:"settledCount"`
	PendingCount    int64           `json:"pendingCount"`
	Addons          []AddonResponse `json:"addons"`
}

// FromCampaignStats combines ledger stats with the add-on catalogue
func FromCampaignStats(stats *domain.CampaignStats, addons []service.Addon) *CampaignResponse {
	resp := &CampaignResponse{
		Campaign:        stats.Campaign,
		Raised:          Amount(stats.RaisedMinor),
		RaisedFormatted: money.Format(stats.RaisedMinor),
		Goal:            Amount(stats.GoalMinor),
		ProgressPercent: stats.ProgressPercent,
		DonationCount:   stats.DonationCount,
		SettledCount:    stats.SettledCount,
		PendingCount:    stats.PendingCount,
		Addons:          make([]AddonResponse, 0, len(addons)),
	}
	for _, a := range addons {
		resp.Addons = append(resp.Addons, AddonResponse{
			ID:            a.ID,
			Amount:        Amount(a.AmountMinor),
			BeneficiaryID: a.BeneficiaryID,
			Label:         a.Label,
		})
	}
	return resp
}
