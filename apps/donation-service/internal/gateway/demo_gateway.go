package gateway

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/money"
)

// DemoIDPrefix marks transactions that only exist in a DemoGateway
const DemoIDPrefix = "demo_"

// DemoGateway fabricates PIX transactions when no provider endpoint is usable
type DemoGateway struct {
	config       *DemoGatewayConfig
	transactions sync.Map
	mu           sync.Mutex
	rnd          *rand.Rand
}

// DemoGatewayConfig holds configuration for the demo gateway
type DemoGatewayConfig struct {
	// DelayMs is the simulated processing delay in milliseconds
	DelayMs int

	// MerchantName and MerchantCity are embedded in the mock PIX code
	MerchantName string
	MerchantCity string

	// PixExpiry sets ExpiresAt on created transactions; 0 leaves it unset
	PixExpiry time.Duration
}

// DefaultDemoGatewayConfig returns default configuration
func DefaultDemoGatewayConfig() *DemoGatewayConfig {
	return &DemoGatewayConfig{
		DelayMs:      0,
		MerchantName: "DOACAO CAMPANHA",
		MerchantCity: "SAO PAULO",
		PixExpiry:    time.Hour,
	}
}

// NewDemoGateway creates a new demo gateway
func NewDemoGateway(config *DemoGatewayConfig) *DemoGateway {
	if config == nil {
		config = DefaultDemoGatewayConfig()
	}
	now := uint64(time.Now().UnixNano())
	return &DemoGateway{
		config: config,
		rnd:    rand.New(rand.NewPCG(now, now>>3|1)),
	}
}

// IsDemoTransaction reports whether id was issued by a DemoGateway
func IsDemoTransaction(id string) bool {
	return strings.HasPrefix(id, DemoIDPrefix)
}

func (g *DemoGateway) delay(ctx context.Context) error {
	if g.config.DelayMs <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		return nil
	}
}

// CreateTransaction stores a PENDING PIX transaction with a mock EMV code
func (g *DemoGateway) CreateTransaction(ctx context.Context, req *TransactionRequest) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("transaction request is required")
	}
	if err := g.delay(ctx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id := DemoIDPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	method := req.Method
	if method == "" {
		method = domain.PaymentMethodPix
	}

	tx := domain.Transaction{
		ID:          id,
		CustomID:    req.ExternalID,
		Status:      domain.TransactionStatusPending,
		Method:      method,
		AmountMinor: req.AmountMinor(),
		Currency:    money.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if g.config.PixExpiry > 0 {
		exp := now.Add(g.config.PixExpiry)
		tx.ExpiresAt = &exp
	}

	switch method {
	case domain.PaymentMethodPix:
		tx.Artifact.Pix = &domain.PixArtifact{Code: g.MockPixCode(id, tx.AmountMinor)}
	case domain.PaymentMethodBillet:
		tx.Artifact.Billet = &domain.BilletArtifact{
			URL:  "https://demo.invalid/billet/" + id,
			Code: fmt.Sprintf("%047d", tx.AmountMinor),
		}
	case domain.PaymentMethodCreditCard:
		installments := req.Installments
		if installments <= 0 {
			installments = 1
		}
		tx.Artifact.Card = &domain.CardArtifact{Installments: installments}
	}

	g.transactions.Store(id, &tx)
	return &Result{Transaction: tx, Split: req.Split, DemoMode: true}, nil
}

// MockPixCode builds a PIX copy-and-paste string for a demo transaction.
// The trailing CRC is random; the code is not payable.
func (g *DemoGateway) MockPixCode(transactionID string, amountMinor int64) string {
	amount := money.ToMajor(amountMinor).StringFixed(2)
	for len(amount) < 10 {
		amount = "0" + amount
	}
	return "00020126820014br.gov.bcb.pix2563pix.syncpay.pro/qr/v3/at/" + transactionID +
		"520400005303986540" + amount +
		"5802BR5925" + fixedWidth(strings.ToUpper(g.config.MerchantName), 25) +
		"6014" + fixedWidth(strings.ToUpper(g.config.MerchantCity), 14) +
		"62070503***6304" + g.randomSuffix()
}

func (g *DemoGateway) randomSuffix() string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	g.mu.Lock()
	defer g.mu.Unlock()
	b := make([]byte, 4)
	for i := range b {
		b[i] = alphabet[g.rnd.IntN(len(alphabet))]
	}
	return string(b)
}

func fixedWidth(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

// GetStatus retrieves a demo transaction
func (g *DemoGateway) GetStatus(ctx context.Context, transactionID string) (*Result, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("transaction ID is required")
	}
	tx, ok := g.load(transactionID)
	if !ok {
		return nil, &Error{Kind: KindNotFound, Provider: g.Name(), Operation: "get_status", Message: "transaction not found: " + transactionID}
	}
	return &Result{Transaction: tx, DemoMode: true}, nil
}

// Cancel marks a pending demo transaction as cancelled
func (g *DemoGateway) Cancel(ctx context.Context, transactionID string) (*CancelResult, error) {
	if err := g.delay(ctx); err != nil {
		return nil, err
	}
	if err := g.SetStatus(transactionID, domain.TransactionStatusCancelled); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &CancelResult{ID: transactionID, Status: domain.TransactionStatusCancelled, CancelledAt: &now, DemoMode: true}, nil
}

// CreateCardToken returns an opaque demo token
func (g *DemoGateway) CreateCardToken(ctx context.Context, card *domain.CardData) (string, error) {
	if card == nil {
		return "", fmt.Errorf("card data is required")
	}
	if err := g.delay(ctx); err != nil {
		return "", err
	}
	return DemoIDPrefix + "card_" + uuid.New().String(), nil
}

// ListTransactions lists demo transactions, newest first
func (g *DemoGateway) ListTransactions(ctx context.Context, filter *ListFilter) (*TransactionPage, error) {
	if filter == nil {
		filter = &ListFilter{}
	}
	var all []domain.Transaction
	g.transactions.Range(func(_, v any) bool {
		tx := *v.(*domain.Transaction)
		if filter.Status == "" || strings.EqualFold(string(tx.Status), filter.Status) {
			all = append(all, tx)
		}
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	page := &TransactionPage{Limit: filter.Limit, Offset: filter.Offset, Total: len(all), DemoMode: true}
	start := min(filter.Offset, len(all))
	end := len(all)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(all))
	}
	page.Transactions = all[start:end]
	return page, nil
}

// SetStatus moves a demo transaction to status, honouring terminal states
func (g *DemoGateway) SetStatus(transactionID string, status domain.TransactionStatus) error {
	tx, ok := g.load(transactionID)
	if !ok {
		return &Error{Kind: KindNotFound, Provider: g.Name(), Operation: "set_status", Message: "transaction not found: " + transactionID}
	}
	if err := tx.TransitionTo(status); err != nil {
		return err
	}
	if status == domain.TransactionStatusApproved {
		now := time.Now().UTC()
		tx.PaidAt = &now
	}
	g.transactions.Store(transactionID, &tx)
	return nil
}

func (g *DemoGateway) load(id string) (domain.Transaction, bool) {
	v, ok := g.transactions.Load(id)
	if !ok {
		return domain.Transaction{}, false
	}
	return *v.(*domain.Transaction), true
}

// Name returns the gateway name
func (g *DemoGateway) Name() string {
	return "demo"
}
