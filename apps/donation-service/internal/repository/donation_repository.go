package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
)

// DonationRepository defines the interface for donation ledger access
type DonationRepository interface {
	// Create records a new donation. Returns domain.ErrDonationExists when
	// the external id was already recorded.
	Create(ctx context.Context, donation *domain.Donation) error

	// GetByTransactionID retrieves a donation by provider transaction id
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Donation, error)

	// UpdateStatus stores a new status for the transaction
	UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, paidAt *time.Time) error

	// ListPending returns up to limit pending donations, least recently
	// checked first
	ListPending(ctx context.Context, limit int) ([]*domain.Donation, error)

	// MarkChecked records that the transaction was polled without a
	// status change, moving it behind other pending rows
	MarkChecked(ctx context.Context, transactionID string) error

	// ListByCampaign returns a campaign's donations, newest first
	ListByCampaign(ctx context.Context, campaign string, limit, offset int) ([]*domain.Donation, error)

	// CampaignStats aggregates counts and the settled total of a campaign
	CampaignStats(ctx context.Context, campaign string) (*domain.CampaignStats, error)
}
