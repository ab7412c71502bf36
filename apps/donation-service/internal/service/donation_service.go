package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/money"
	"github.com/prohmpiriya/donation-rush/pkg/config"
)

// DonationService owns the current-donation session of every client scope.
// A scope is an opaque client identifier; the empty scope is the campaign-wide session.
type DonationService interface {
	// ProcessDonation validates the intent, creates the provider transaction
	// and persists it as the scope's current donation
	ProcessDonation(ctx context.Context, scope string, intent *DonationIntent) (*DonationResult, error)

	// CheckCurrentPaymentStatus refreshes the current donation from the provider.
	// Available is false when the scope has nothing to check.
	CheckCurrentPaymentStatus(ctx context.Context, scope string) (*StatusResult, error)

	// IsExpired reports whether the scope's current donation is past its expiry
	IsExpired(ctx context.Context, scope string) (bool, error)

	// ClearCurrentTransaction drops the scope's session; idempotent
	ClearCurrentTransaction(ctx context.Context, scope string) error

	// CancelCurrentTransaction cancels the scope's pending transaction at the provider
	CancelCurrentTransaction(ctx context.Context, scope string) (*gateway.CancelResult, error)

	// CreateCardToken validates card data and exchanges it for a token
	CreateCardToken(ctx context.Context, card *domain.CardData) (string, error)

	// CampaignStats aggregates the donation ledger against the campaign goal
	CampaignStats(ctx context.Context) (*domain.CampaignStats, error)

	// Addons lists the optional line items a donor may add
	Addons() []Addon
}

// DonationIntent is a donation request in minor units
type DonationIntent struct {
	BaseAmountMinor int64
	LineItems       []domain.LineItem
	// AddonIDs are resolved against the configured catalogue and appended to LineItems
	AddonIDs []string
	// Customer may be nil or partial; missing fields are generated
	Customer     *domain.Customer
	Method       domain.PaymentMethod
	CardToken    string
	Installments int
	Description  string
	Optional     domain.OptionalFields
	// ExternalID is reused when set (idempotency key); generated otherwise
	ExternalID string
}

// DonationResult is the normalized payment-initiation result
type DonationResult struct {
	Success         bool                     `json:"success"`
	TransactionID   string                   `json:"transactionId"`
	ExternalID      string                   `json:"externalId"`
	Status          domain.TransactionStatus `json:"status"`
	State           domain.LifecycleState    `json:"state"`
	AmountMinor     int64                    `json:"amountMinor"`
	BaseAmountMinor int64                    `json:"baseAmountMinor"`
	Artifact        domain.PaymentArtifact   `json:"paymentArtifact"`
	ExpiresAt       *time.Time               `json:"expiresAt,omitempty"`
	Split           []domain.SplitAllocation `json:"split,omitempty"`
	DemoMode        bool                     `json:"demoMode"`
}

// StatusResult is the outcome of a status refresh
type StatusResult struct {
	Available bool            `json:"available"`
	Session   *domain.Session `json:"session,omitempty"`
	// Changed is true when the refresh moved the transaction to a new status
	Changed bool `json:"changed"`
	Expired bool `json:"expired"`
}

// Addon is one entry of the configured add-on catalogue
type Addon struct {
	ID            string `json:"id"`
	AmountMinor   int64  `json:"amountMinor"`
	BeneficiaryID string `json:"beneficiaryId"`
	Label         string `json:"label,omitempty"`
}

// LineItem converts the addon to the line item sent with a donation
func (a Addon) LineItem() domain.LineItem {
	return domain.LineItem{BeneficiaryID: a.BeneficiaryID, AmountMinor: a.AmountMinor, Label: a.Label}
}

// DonationServiceConfig holds configuration for the donation service
type DonationServiceConfig struct {
	Campaign           string
	MinimumAmountMinor int64
	GoalMinor          int64
	// PixExpiry is the fallback expiry when the provider omits one
	PixExpiry   time.Duration
	PostbackURL string
	Addons      []Addon

	// Now is the clock; nil uses time.Now
	Now func() time.Time
}

// NewDonationServiceConfig converts the campaign settings, parsing major-unit amounts
func NewDonationServiceConfig(campaign *config.CampaignConfig, gw *config.GatewayConfig) (*DonationServiceConfig, error) {
	minimum, err := money.Parse(campaign.MinAmount)
	if err != nil {
		return nil, fmt.Errorf("campaign minimum: %w", err)
	}

	var goal int64
	if campaign.Goal != "" {
		if goal, err = money.Parse(campaign.Goal); err != nil {
			return nil, fmt.Errorf("campaign goal: %w", err)
		}
	}

	addons := make([]Addon, 0, len(campaign.Addons))
	for _, a := range campaign.Addons {
		amount, err := money.Parse(a.Amount)
		if err != nil {
			return nil, fmt.Errorf("addon %s: %w", a.ID, err)
		}
		addons = append(addons, Addon{
			ID:            a.ID,
			AmountMinor:   amount,
			BeneficiaryID: a.BeneficiaryID,
			Label:         a.Label,
		})
	}

	cfg := &DonationServiceConfig{
		Campaign:           campaign.Name,
		MinimumAmountMinor: minimum,
		GoalMinor:          goal,
		PixExpiry:          campaign.PixExpiry,
		Addons:             addons,
	}
	if gw != nil {
		cfg.PostbackURL = gw.PostbackURL
	}
	return cfg, nil
}
