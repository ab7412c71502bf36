package repository

import (
	"context"
	"testing"
	"time"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
)

func newTestDonation(externalID, txID string, amount int64, createdAt time.Time) *domain.Donation {
	return &domain.Donation{
		ID:              "id-" + externalID,
		Campaign:        "isabela",
		ExternalID:      externalID,
		TransactionID:   txID,
		Provider:        "rushpay",
		Method:          domain.PaymentMethodPix,
		Status:          domain.TransactionStatusPending,
		AmountMinor:     amount,
		BaseAmountMinor: amount,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestMemoryDonationRepository_Create(t *testing.T) {
	repo := NewMemoryDonationRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newTestDonation("ext-1", "tx-1", 5000, time.Now())); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if repo.Count() != 1 {
		t.Errorf("Expected count 1, got %d", repo.Count())
	}
}

func TestMemoryDonationRepository_Create_Duplicate(t *testing.T) {
	repo := NewMemoryDonationRepository()
	ctx := context.Background()

	first := newTestDonation("ext-1", "tx-1", 5000, time.Now())
	second := newTestDonation("ext-1", "tx-2", 2500, time.Now())
	second.ID = "other"

	_ = repo.Create(ctx, first)
	if err := repo.Create(ctx, second); err != domain.ErrDonationExists {
		t.Errorf("Expected ErrDonationExists, got %v", err)
	}
}

func TestMemoryDonationRepository_GetByTransactionID(t *testing.T) {
	repo := NewMemoryDonationRepository()
	ctx := context.Background()
	_ = repo.Create(ctx, newTestDonation("ext-1", "tx-1", 5000, time.Now()))

	found, err := repo.GetByTransactionID(ctx, "tx-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if found.ExternalID != "ext-1" {
		t.Errorf("Expected external id 'ext-1', got '%s'", found.ExternalID)
	}

	// returned rows are copies
	found.Status = domain.TransactionStatusApproved
	again, _ := repo.GetByTransactionID(ctx, "tx-1")
	if again.Status != domain.TransactionStatusPending {
		t.Errorf("Expected stored status to stay PENDING, got %s", again.Status)
	}

	if _, err := repo.GetByTransactionID(ctx, "missing"); err != domain.ErrDonationNotFound {
		t.Errorf("Expected ErrDonationNotFound, got %v", err)
	}
}

func TestMemoryDonationRepository_UpdateStatus(t *testing.T) {
	repo := NewMemoryDonationRepository()
	ctx := context.Background()
	_ = repo.Create(ctx, newTestDonation("ext-1", "tx-1", 5000, time.Now()))

	paidAt := time.Now().UTC()
	if err := repo.UpdateStatus(ctx, "tx-1", domain.TransactionStatusApproved, &paidAt); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	found, _ := repo.GetByTransactionID(ctx, "tx-1")
	if found.Status != domain.TransactionStatusApproved {
		t.Errorf("Expected APPROVED, got %s", found.Status)
	}
	if found.PaidAt == nil || !found.PaidAt.Equal(paidAt) {
		t.Errorf("Expected paid_at %v, got %v", paidAt, found.PaidAt)
	}

	if err := repo.UpdateStatus(ctx, "missing", domain.TransactionStatusApproved, nil); err != domain.ErrDonationNotFound {
		t.Errorf("Expected ErrDonationNotFound, got %v", err)
	}
}

func TestMemoryDonationRepository_ListPending(t *testing.T) {
	repo := NewMemoryDonationRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = repo.Create(ctx, newTestDonation("ext-2", "tx-2", 5000, base.Add(2*time.Minute)))
	_ = repo.Create(ctx, newTestDonation("ext-1", "tx-1", 5000, base))
	_ = repo.Create(ctx, newTestDonation("ext-3", "tx-3", 5000, base.Add(time.Minute)))
	_ = repo.UpdateStatus(ctx, "tx-3", domain.TransactionStatusApproved, nil)

	pending, err := repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending donations, got %d", len(pending))
	}
	if pending[0].TransactionID != "tx-1" {
		t.Errorf("Expected oldest first, got %s", pending[0].TransactionID)
	}

	limited, _ := repo.ListPending(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("Expected 1 donation with limit, got %d", len(limited))
	}
}

func TestMemoryDonationRepository_MarkCheckedRotatesPending(t *testing.T) {
	repo := NewMemoryDonationRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = repo.Create(ctx, newTestDonation("ext-1", "tx-1", 5000, base))
	_ = repo.Create(ctx, newTestDonation("ext-2", "tx-2", 5000, base.Add(time.Minute)))

	if err := repo.MarkChecked(ctx, "tx-1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	pending, _ := repo.ListPending(ctx, 1)
	if len(pending) != 1 || pending[0].TransactionID != "tx-2" {
		t.Fatalf("Expected tx-2 ahead of the checked row, got %+v", pending)
	}

	if err := repo.MarkChecked(ctx, "tx-missing"); err != domain.ErrDonationNotFound {
		t.Errorf("Expected ErrDonationNotFound, got %v", err)
	}
}

func TestMemoryDonationRepository_ListByCampaign_Pagination(t *testing.T) {
	repo := NewMemoryDonationRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, ext := range []string{"a", "b", "c", "d", "e"} {
		_ = repo.Create(ctx, newTestDonation(ext, "tx-"+ext, 5000, base.Add(time.Duration(i)*time.Minute)))
	}
	other := newTestDonation("z", "tx-z", 5000, base)
	other.Campaign = "other"
	_ = repo.Create(ctx, other)

	page1, _ := repo.ListByCampaign(ctx, "isabela", 2, 0)
	if len(page1) != 2 || page1[0].ExternalID != "e" {
		t.Errorf("Expected newest first page [e d], got %d items", len(page1))
	}

	page3, _ := repo.ListByCampaign(ctx, "isabela", 2, 4)
	if len(page3) != 1 {
		t.Errorf("Expected 1 item on last page, got %d", len(page3))
	}

	empty, _ := repo.ListByCampaign(ctx, "isabela", 2, 10)
	if len(empty) != 0 {
		t.Errorf("Expected empty page, got %d", len(empty))
	}
}

func TestMemoryDonationRepository_CampaignStats(t *testing.T) {
	repo := NewMemoryDonationRepository()
	ctx := context.Background()
	now := time.Now()

	_ = repo.Create(ctx, newTestDonation("ext-1", "tx-1", 5000, now))
	_ = repo.Create(ctx, newTestDonation("ext-2", "tx-2", 6500, now))
	_ = repo.Create(ctx, newTestDonation("ext-3", "tx-3", 2000, now))
	demo := newTestDonation("ext-4", "demo_1", 9900, now)
	demo.DemoMode = true
	demo.Status = domain.TransactionStatusApproved
	_ = repo.Create(ctx, demo)

	_ = repo.UpdateStatus(ctx, "tx-1", domain.TransactionStatusApproved, nil)
	_ = repo.UpdateStatus(ctx, "tx-2", domain.TransactionStatusApproved, nil)

	stats, err := repo.CampaignStats(ctx, "isabela")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.DonationCount != 3 {
		t.Errorf("Expected 3 donations (demo excluded), got %d", stats.DonationCount)
	}
	if stats.SettledCount != 2 || stats.PendingCount != 1 {
		t.Errorf("Expected 2 settled and 1 pending, got %d and %d", stats.SettledCount, stats.PendingCount)
	}
	if stats.RaisedMinor != 11500 {
		t.Errorf("Expected raised 11500, got %d", stats.RaisedMinor)
	}
}
