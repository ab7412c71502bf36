package gateway

import (
	"context"
	"time"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/resolver"
)

// PaymentGateway defines the interface for payment processing
type PaymentGateway interface {
	// CreateTransaction creates a transaction; ExternalID is always forwarded
	CreateTransaction(ctx context.Context, req *TransactionRequest) (*Result, error)

	// GetStatus fetches the current state of a transaction
	GetStatus(ctx context.Context, transactionID string) (*Result, error)

	// Cancel cancels a pending transaction
	Cancel(ctx context.Context, transactionID string) (*CancelResult, error)

	// CreateCardToken exchanges card data for a single-use token
	CreateCardToken(ctx context.Context, card *domain.CardData) (string, error)

	// ListTransactions lists transactions known to the provider
	ListTransactions(ctx context.Context, filter *ListFilter) (*TransactionPage, error)

	// Name returns the gateway name
	Name() string
}

// BalanceProvider is implemented by gateways that expose the account balance
type BalanceProvider interface {
	Balance(ctx context.Context) (int64, error)
}

// Prober is implemented by gateways that can report endpoint connectivity
type Prober interface {
	Probe(ctx context.Context) *ProbeReport
}

// TransactionRequest is the provider-neutral create request
type TransactionRequest struct {
	BaseAmountMinor int64
	LineItems       []domain.LineItem
	Customer        domain.Customer
	Method          domain.PaymentMethod
	ExternalID      string
	Description     string

	// CardToken and Installments apply to CREDIT_CARD only
	CardToken    string
	Installments int

	Split       []domain.SplitAllocation
	PostbackURL string
	Optional    domain.OptionalFields
}

// AmountMinor is the base amount plus every line item
func (r *TransactionRequest) AmountMinor() int64 {
	total := r.BaseAmountMinor
	for _, item := range r.LineItems {
		total += item.AmountMinor
	}
	return total
}

// Result wraps a normalized transaction. DemoMode marks synthetic data.
type Result struct {
	Transaction domain.Transaction
	// Split is the allocation the provider was sent; nil when it has none
	Split    []domain.SplitAllocation
	DemoMode bool
}

// CancelResult is the outcome of a cancellation
type CancelResult struct {
	ID          string                   `json:"id"`
	Status      domain.TransactionStatus `json:"status"`
	CancelledAt *time.Time               `json:"cancelledAt,omitempty"`
	DemoMode    bool                     `json:"demoMode"`
}

// ListFilter narrows ListTransactions
type ListFilter struct {
	Limit    int
	Offset   int
	Status   string
	DateFrom string
	DateTo   string
}

// TransactionPage is one page of listed transactions
type TransactionPage struct {
	Transactions []domain.Transaction `json:"transactions"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
	Total        int                  `json:"total"`
	DemoMode     bool                 `json:"demoMode"`
}

// ProbeReport describes connectivity of every configured candidate
type ProbeReport struct {
	Provider   string                 `json:"provider"`
	Reachable  bool                   `json:"reachable"`
	DemoMode   bool                   `json:"demoMode"`
	Resolved   *resolver.Candidate    `json:"resolved,omitempty"`
	Candidates []resolver.ProbeResult `json:"candidates"`
}

func probeReport(ctx context.Context, provider string, r *resolver.Resolver) *ProbeReport {
	report := &ProbeReport{Provider: provider, Candidates: r.Probe(ctx)}
	for i := range report.Candidates {
		if report.Candidates[i].Reachable {
			report.Reachable = true
			c := report.Candidates[i].Candidate
			report.Resolved = &c
			break
		}
	}
	report.DemoMode = !report.Reachable
	return report
}
