package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/repository"
	"github.com/prohmpiriya/donation-rush/pkg/retry"
)

// scriptedGateway answers GetStatus from a per-transaction script
type scriptedGateway struct {
	gateway.PaymentGateway

	mu     sync.Mutex
	script map[string][]func() (*gateway.Result, error)
	calls  map[string]int
}

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{
		script: map[string][]func() (*gateway.Result, error){},
		calls:  map[string]int{},
	}
}

func (g *scriptedGateway) add(id string, steps ...func() (*gateway.Result, error)) {
	g.script[id] = append(g.script[id], steps...)
}

func (g *scriptedGateway) GetStatus(ctx context.Context, id string) (*gateway.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.calls[id]
	g.calls[id]++
	steps := g.script[id]
	if n >= len(steps) {
		n = len(steps) - 1
	}
	return steps[n]()
}

func (g *scriptedGateway) Name() string { return "scripted" }

func status(s domain.TransactionStatus) func() (*gateway.Result, error) {
	return func() (*gateway.Result, error) {
		return &gateway.Result{Transaction: domain.Transaction{Status: s}}, nil
	}
}

func failing(kind gateway.ErrorKind) func() (*gateway.Result, error) {
	return func() (*gateway.Result, error) {
		return nil, &gateway.Error{Kind: kind, Provider: "scripted", Operation: "status"}
	}
}

func fastConfig() *StatusPollerConfig {
	return &StatusPollerConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		ExpireGrace:  time.Minute,
		Retry: &retry.Config{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			Multiplier:      2.0,
		},
	}
}

func seed(t *testing.T, repo *repository.MemoryDonationRepository, tx string, expiresAt *time.Time) {
	t.Helper()
	seedAt(t, repo, tx, time.Now(), expiresAt)
}

func seedAt(t *testing.T, repo *repository.MemoryDonationRepository, tx string, createdAt time.Time, expiresAt *time.Time) {
	t.Helper()
	err := repo.Create(context.Background(), &domain.Donation{
		ID:            "id-" + tx,
		Campaign:      "isabela",
		ExternalID:    "ext-" + tx,
		TransactionID: tx,
		Status:        domain.TransactionStatusPending,
		AmountMinor:   5000,
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestDefaultStatusPollerConfig(t *testing.T) {
	config := DefaultStatusPollerConfig()

	if config.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want %v", config.PollInterval, 30*time.Second)
	}
	if config.BatchSize != 50 {
		t.Errorf("BatchSize = %v, want %v", config.BatchSize, 50)
	}
	if config.Retry == nil || config.Retry.MaxRetries != 2 {
		t.Errorf("Retry = %+v, want 2 retries", config.Retry)
	}
}

func TestNewStatusPoller_WithDefaultConfig(t *testing.T) {
	poller := NewStatusPoller(nil, nil, nil, nil)

	if poller.config == nil || poller.config.Retry.RetryIf == nil {
		t.Fatal("Poller should retry transient errors by default")
	}
	if poller.IsRunning() {
		t.Error("Poller should not be running initially")
	}
}

func TestStatusPoller_Sweep(t *testing.T) {
	repo := repository.NewMemoryDonationRepository()
	gw := newScriptedGateway()
	ctx := context.Background()

	seed(t, repo, "tx-paid", nil)
	seed(t, repo, "tx-waiting", nil)
	seed(t, repo, "tx-flaky", nil)
	seed(t, repo, "tx-rejected", nil)

	gw.add("tx-paid", status(domain.TransactionStatusApproved))
	gw.add("tx-waiting", status(domain.TransactionStatusPending))
	gw.add("tx-flaky", failing(gateway.KindTransient), status(domain.TransactionStatusApproved))
	gw.add("tx-rejected", failing(gateway.KindRejected))

	poller := NewStatusPoller(repo, gw, nil, fastConfig())
	stats := poller.Sweep(ctx)

	if stats.Checked != 4 {
		t.Errorf("Checked = %d, want 4", stats.Checked)
	}
	if stats.Changed != 2 {
		t.Errorf("Changed = %d, want 2", stats.Changed)
	}
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}

	paid, _ := repo.GetByTransactionID(ctx, "tx-paid")
	if paid.Status != domain.TransactionStatusApproved {
		t.Errorf("tx-paid status = %s, want APPROVED", paid.Status)
	}
	flaky, _ := repo.GetByTransactionID(ctx, "tx-flaky")
	if flaky.Status != domain.TransactionStatusApproved {
		t.Errorf("tx-flaky status = %s, want APPROVED after retry", flaky.Status)
	}
	if gw.calls["tx-rejected"] != 1 {
		t.Errorf("rejected errors must not be retried, got %d calls", gw.calls["tx-rejected"])
	}

	pending, _ := repo.ListPending(ctx, 10)
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}

func TestStatusPoller_ExpiresStalePending(t *testing.T) {
	repo := repository.NewMemoryDonationRepository()
	gw := newScriptedGateway()
	ctx := context.Background()

	past := time.Now().Add(-2 * time.Hour)
	seed(t, repo, "tx-stale", &past)
	gw.add("tx-stale", status(domain.TransactionStatusPending))

	stats := NewStatusPoller(repo, gw, nil, fastConfig()).Sweep(ctx)
	if stats.Expired != 1 {
		t.Fatalf("Expired = %d, want 1", stats.Expired)
	}

	d, _ := repo.GetByTransactionID(ctx, "tx-stale")
	if d.Status != domain.TransactionStatusExpired {
		t.Errorf("status = %s, want EXPIRED", d.Status)
	}
}

func TestStatusPoller_ExpiresStaleRowsWithUnreadableStatus(t *testing.T) {
	repo := repository.NewMemoryDonationRepository()
	gw := newScriptedGateway()
	ctx := context.Background()

	base := time.Now().Add(-72 * time.Hour)
	expired := time.Now().Add(-48 * time.Hour)
	for i := 0; i < 10; i++ {
		tx := fmt.Sprintf("tx-lost-%d", i)
		seedAt(t, repo, tx, base.Add(time.Duration(i)*time.Second), &expired)
		gw.add(tx, failing(gateway.KindNotFound))
	}
	seedAt(t, repo, "tx-new", time.Now(), nil)
	gw.add("tx-new", status(domain.TransactionStatusApproved))

	poller := NewStatusPoller(repo, gw, nil, fastConfig())
	first := poller.Sweep(ctx)
	if first.Expired != 10 || first.Failed != 0 {
		t.Errorf("first sweep = %+v, want 10 expired and none failed", first)
	}
	poller.Sweep(ctx)

	lost, _ := repo.GetByTransactionID(ctx, "tx-lost-0")
	if lost.Status != domain.TransactionStatusExpired {
		t.Errorf("tx-lost-0 status = %s, want EXPIRED", lost.Status)
	}
	fresh, _ := repo.GetByTransactionID(ctx, "tx-new")
	if fresh.Status != domain.TransactionStatusApproved {
		t.Errorf("tx-new status = %s, want APPROVED", fresh.Status)
	}
	if gw.calls["tx-lost-0"] != 1 {
		t.Errorf("not-found lookups must not be retried, got %d calls", gw.calls["tx-lost-0"])
	}
}

func TestStatusPoller_FailingRowsDoNotBlockBatch(t *testing.T) {
	repo := repository.NewMemoryDonationRepository()
	gw := newScriptedGateway()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		tx := fmt.Sprintf("tx-down-%d", i)
		seedAt(t, repo, tx, base.Add(time.Duration(i)*time.Second), nil)
		gw.add(tx, failing(gateway.KindTransient))
	}
	seedAt(t, repo, "tx-new", time.Now(), nil)
	gw.add("tx-new", status(domain.TransactionStatusApproved))

	poller := NewStatusPoller(repo, gw, nil, fastConfig())
	first := poller.Sweep(ctx)
	if first.Failed != 10 {
		t.Errorf("first sweep Failed = %d, want 10", first.Failed)
	}

	second := poller.Sweep(ctx)
	if second.Changed != 1 {
		t.Errorf("second sweep Changed = %d, want 1", second.Changed)
	}
	fresh, _ := repo.GetByTransactionID(ctx, "tx-new")
	if fresh.Status != domain.TransactionStatusApproved {
		t.Errorf("tx-new status = %s, want APPROVED", fresh.Status)
	}

	// transient failures keep the row pending even when it is stale
	down, _ := repo.GetByTransactionID(ctx, "tx-down-0")
	if down.Status != domain.TransactionStatusPending {
		t.Errorf("tx-down-0 status = %s, want PENDING", down.Status)
	}
}

func TestStatusPoller_FreshNotFoundStaysPending(t *testing.T) {
	repo := repository.NewMemoryDonationRepository()
	gw := newScriptedGateway()
	ctx := context.Background()

	soon := time.Now().Add(30 * time.Minute)
	seed(t, repo, "tx-young", &soon)
	gw.add("tx-young", failing(gateway.KindNotFound))

	stats := NewStatusPoller(repo, gw, nil, fastConfig()).Sweep(ctx)
	if stats.Failed != 1 || stats.Expired != 0 {
		t.Errorf("stats = %+v, want one failure and no expiry", stats)
	}
	d, _ := repo.GetByTransactionID(ctx, "tx-young")
	if d.Status != domain.TransactionStatusPending {
		t.Errorf("status = %s, want PENDING", d.Status)
	}
}

func TestStatusPoller_StartStop(t *testing.T) {
	repo := repository.NewMemoryDonationRepository()
	gw := newScriptedGateway()
	seed(t, repo, "tx-1", nil)
	gw.add("tx-1", status(domain.TransactionStatusApproved))

	poller := NewStatusPoller(repo, gw, nil, fastConfig())
	if err := poller.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := poller.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d, _ := repo.GetByTransactionID(context.Background(), "tx-1")
		if d.Status == domain.TransactionStatusApproved {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	poller.Stop()
	poller.Stop()
	if poller.IsRunning() {
		t.Error("poller should be stopped")
	}

	d, _ := repo.GetByTransactionID(context.Background(), "tx-1")
	if d.Status != domain.TransactionStatusApproved {
		t.Errorf("status = %s, want APPROVED", d.Status)
	}
}
