package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/events"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/repository"
	"github.com/prohmpiriya/donation-rush/pkg/logger"
	"github.com/prohmpiriya/donation-rush/pkg/retry"
)

// StatusPollerConfig contains configuration for the status poller
type StatusPollerConfig struct {
	// PollInterval is the interval between sweeps of pending donations
	PollInterval time.Duration
	// BatchSize is the number of pending donations checked per sweep
	BatchSize int
	// ExpireGrace is how long past expiresAt a still-pending donation is
	// polled before the ledger marks it EXPIRED
	ExpireGrace time.Duration
	// Retry governs per-transaction retries of transient gateway failures
	Retry *retry.Config
}

// DefaultStatusPollerConfig returns default configuration
func DefaultStatusPollerConfig() *StatusPollerConfig {
	return &StatusPollerConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    50,
		ExpireGrace:  10 * time.Minute,
		Retry: &retry.Config{
			MaxRetries:      2,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	}
}

// StatusPoller moves pending ledger rows to their terminal status
type StatusPoller struct {
	repo      repository.DonationRepository
	gateway   gateway.PaymentGateway
	publisher events.Publisher
	config    *StatusPollerConfig
	now       func() time.Time
	log       *logger.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// NewStatusPoller creates a new status poller
func NewStatusPoller(
	repo repository.DonationRepository,
	gw gateway.PaymentGateway,
	publisher events.Publisher,
	config *StatusPollerConfig,
) *StatusPoller {
	if config == nil {
		config = DefaultStatusPollerConfig()
	}
	if config.Retry == nil {
		config.Retry = DefaultStatusPollerConfig().Retry
	}
	config.Retry.RetryIf = gateway.IsTransient
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &StatusPoller{
		repo:      repo,
		gateway:   gw,
		publisher: publisher,
		config:    config,
		now:       time.Now,
		log:       logger.Get().With(zap.String("worker", "status-poller")),
		stopCh:    make(chan struct{}),
	}
}

// Start starts the poller loop
func (p *StatusPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("status poller already running")
	}
	p.running = true
	p.mu.Unlock()

	p.log.Info("Starting status poller", zap.Duration("interval", p.config.PollInterval))

	p.wg.Add(1)
	go p.loop(ctx)

	return nil
}

// Stop stops the poller and waits for the current sweep to finish
func (p *StatusPoller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.log.Info("Stopping status poller")
	close(p.stopCh)
	p.wg.Wait()
	p.log.Info("Status poller stopped")
}

// IsRunning reports whether the loop is active
func (p *StatusPoller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *StatusPoller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// SweepStats summarizes one sweep
type SweepStats struct {
	Checked int
	Changed int
	Expired int
	Failed  int
}

// Sweep checks one batch of pending donations
func (p *StatusPoller) Sweep(ctx context.Context) SweepStats {
	var stats SweepStats

	pending, err := p.repo.ListPending(ctx, p.config.BatchSize)
	if err != nil {
		p.log.Error("Failed to list pending donations", zap.Error(err))
		return stats
	}

	for _, d := range pending {
		if ctx.Err() != nil {
			break
		}
		stats.Checked++

		changed, expired, err := p.check(ctx, d)
		if (err != nil || !(changed || expired)) && ctx.Err() == nil {
			// rows still pending rotate to the back of the next batch
			if err := p.repo.MarkChecked(ctx, d.TransactionID); err != nil {
				p.log.Warn("Failed to mark donation checked", zap.String("transaction_id", d.TransactionID), zap.Error(err))
			}
		}
		switch {
		case err != nil:
			stats.Failed++
			p.log.Warn("Failed to refresh donation status",
				zap.String("transaction_id", d.TransactionID),
				zap.String("kind", string(gateway.KindOf(err))),
				zap.Error(err),
			)
		case expired:
			stats.Expired++
		case changed:
			stats.Changed++
		}
	}

	if stats.Changed > 0 || stats.Expired > 0 || stats.Failed > 0 {
		p.log.Info("Status sweep finished",
			zap.Int("checked", stats.Checked),
			zap.Int("changed", stats.Changed),
			zap.Int("expired", stats.Expired),
			zap.Int("failed", stats.Failed),
		)
	}
	return stats
}

func (p *StatusPoller) check(ctx context.Context, d *domain.Donation) (changed, expired bool, err error) {
	policy := *p.config.Retry
	policy.OnRetry = func(attempt int, err error, next time.Duration) {
		p.log.Debug("Retrying status check",
			zap.String("transaction_id", d.TransactionID),
			zap.Int("attempt", attempt),
			zap.Duration("next", next),
			zap.Error(err),
		)
	}

	var res *gateway.Result
	if err := retry.Do(ctx, &policy, func(ctx context.Context) error {
		var err error
		res, err = p.gateway.GetStatus(ctx, d.TransactionID)
		return err
	}); err != nil {
		// a lookup that can never succeed must not keep a stale row pending
		if ctx.Err() == nil && !gateway.IsTransient(err) && p.stale(d) {
			p.log.Warn("Expiring donation whose status cannot be read",
				zap.String("transaction_id", d.TransactionID),
				zap.String("kind", string(gateway.KindOf(err))),
				zap.Error(err),
			)
			return false, true, p.apply(ctx, d, domain.TransactionStatusExpired, nil)
		}
		return false, false, err
	}

	tx := res.Transaction
	if !tx.Status.Valid() || tx.Status == d.Status {
		if p.stale(d) {
			return false, true, p.apply(ctx, d, domain.TransactionStatusExpired, nil)
		}
		return false, false, nil
	}

	return true, false, p.apply(ctx, d, tx.Status, tx.PaidAt)
}

// stale is true once a row is past its expiry plus the grace period
func (p *StatusPoller) stale(d *domain.Donation) bool {
	return d.ExpiresAt != nil && p.now().After(d.ExpiresAt.Add(p.config.ExpireGrace))
}

func (p *StatusPoller) apply(ctx context.Context, d *domain.Donation, status domain.TransactionStatus, paidAt *time.Time) error {
	current := domain.Transaction{Status: d.Status}
	if err := current.TransitionTo(status); err != nil {
		return err
	}
	if err := p.repo.UpdateStatus(ctx, d.TransactionID, status, paidAt); err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}
	if err := p.publisher.PublishStatusChanged(ctx, d.Campaign, d.TransactionID, d.Status, status, d.AmountMinor, paidAt); err != nil {
		p.log.Warn("Status changed event not published", zap.String("transaction_id", d.TransactionID), zap.Error(err))
	}
	return nil
}
