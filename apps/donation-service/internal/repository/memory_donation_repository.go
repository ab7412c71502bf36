package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
)

// MemoryDonationRepository is an in-memory ledger used when no database is configured
type MemoryDonationRepository struct {
	mu         sync.RWMutex
	donations  map[string]*domain.Donation // by id
	byExternal map[string]string
}

// NewMemoryDonationRepository creates an empty in-memory repository
func NewMemoryDonationRepository() *MemoryDonationRepository {
	return &MemoryDonationRepository{
		donations:  make(map[string]*domain.Donation),
		byExternal: make(map[string]string),
	}
}

func (r *MemoryDonationRepository) Create(ctx context.Context, d *domain.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byExternal[d.ExternalID]; exists {
		return domain.ErrDonationExists
	}
	cp := *d
	r.donations[d.ID] = &cp
	r.byExternal[d.ExternalID] = d.ID
	return nil
}

func (r *MemoryDonationRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *domain.Donation
	for _, d := range r.donations {
		if d.TransactionID != transactionID {
			continue
		}
		if found == nil || d.CreatedAt.After(found.CreatedAt) {
			found = d
		}
	}
	if found == nil {
		return nil, domain.ErrDonationNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *MemoryDonationRepository) UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, paidAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := false
	for _, d := range r.donations {
		if d.TransactionID != transactionID {
			continue
		}
		d.Status = status
		if paidAt != nil {
			d.PaidAt = paidAt
		}
		d.UpdatedAt = time.Now().UTC()
		updated = true
	}
	if !updated {
		return domain.ErrDonationNotFound
	}
	return nil
}

func (r *MemoryDonationRepository) ListPending(ctx context.Context, limit int) ([]*domain.Donation, error) {
	out := r.filter(func(d *domain.Donation) bool {
		return d.Status == domain.TransactionStatusPending
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, limit, 0), nil
}

func (r *MemoryDonationRepository) MarkChecked(ctx context.Context, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	updated := false
	for _, d := range r.donations {
		if d.TransactionID == transactionID {
			d.UpdatedAt = now
			updated = true
		}
	}
	if !updated {
		return domain.ErrDonationNotFound
	}
	return nil
}

func (r *MemoryDonationRepository) ListByCampaign(ctx context.Context, campaign string, limit, offset int) ([]*domain.Donation, error) {
	out := r.filter(func(d *domain.Donation) bool { return d.Campaign == campaign })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *MemoryDonationRepository) CampaignStats(ctx context.Context, campaign string) (*domain.CampaignStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.CampaignStats{Campaign: campaign}
	for _, d := range r.donations {
		if d.Campaign != campaign || d.DemoMode {
			continue
		}
		stats.DonationCount++
		switch d.Status {
		case domain.TransactionStatusPending:
			stats.PendingCount++
		case domain.TransactionStatusApproved:
			stats.SettledCount++
			stats.RaisedMinor += d.AmountMinor
		}
	}
	return stats, nil
}

// Count returns the number of recorded donations
func (r *MemoryDonationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.donations)
}

func (r *MemoryDonationRepository) filter(keep func(*domain.Donation) bool) []*domain.Donation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Donation
	for _, d := range r.donations {
		if keep(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out
}

func page(items []*domain.Donation, limit, offset int) []*domain.Donation {
	if offset >= len(items) {
		return []*domain.Donation{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
