package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/events"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/money"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/repository"
	"github.com/prohmpiriya/donation-rush/pkg/logger"
)

// AdminService exposes provider-level operations to operators
type AdminService interface {
	ListTransactions(ctx context.Context, filter *gateway.ListFilter) (*gateway.TransactionPage, error)
	Balance(ctx context.Context) (*BalanceResult, error)
	Probe(ctx context.Context) *gateway.ProbeReport
	CancelTransaction(ctx context.Context, transactionID string) (*gateway.CancelResult, error)
	ListDonations(ctx context.Context, limit, offset int) ([]*domain.Donation, error)
}

// BalanceResult is the provider account balance
type BalanceResult struct {
	Provider     string `json:"provider"`
	BalanceMinor int64  `json:"balanceMinor"`
	Formatted    string `json:"formatted"`
}

type adminServiceImpl struct {
	gateway   gateway.PaymentGateway
	repo      repository.DonationRepository
	publisher events.Publisher
	campaign  string
	log       *logger.Logger
}

// NewAdminService creates a new AdminService. repo and publisher may be nil.
func NewAdminService(gw gateway.PaymentGateway, repo repository.DonationRepository, publisher events.Publisher, campaign string) AdminService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &adminServiceImpl{
		gateway:   gw,
		repo:      repo,
		publisher: publisher,
		campaign:  campaign,
		log:       logger.Get(),
	}
}

func (s *adminServiceImpl) ListTransactions(ctx context.Context, filter *gateway.ListFilter) (*gateway.TransactionPage, error) {
	if filter == nil {
		filter = &gateway.ListFilter{}
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.gateway.ListTransactions(ctx, filter)
}

func (s *adminServiceImpl) Balance(ctx context.Context) (*BalanceResult, error) {
	bp, ok := s.gateway.(gateway.BalanceProvider)
	if !ok {
		return nil, gateway.ErrUnsupported
	}
	balance, err := bp.Balance(ctx)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{
		Provider:     s.gateway.Name(),
		BalanceMinor: balance,
		Formatted:    money.Format(balance),
	}, nil
}

// Probe reports connectivity; gateways without endpoints are always reachable
func (s *adminServiceImpl) Probe(ctx context.Context) *gateway.ProbeReport {
	if p, ok := s.gateway.(gateway.Prober); ok {
		return p.Probe(ctx)
	}
	return &gateway.ProbeReport{Provider: s.gateway.Name(), Reachable: true, DemoMode: s.gateway.Name() == "demo"}
}

func (s *adminServiceImpl) CancelTransaction(ctx context.Context, transactionID string) (*gateway.CancelResult, error) {
	res, err := s.gateway.Cancel(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if s.repo == nil {
		return res, nil
	}
	d, err := s.repo.GetByTransactionID(ctx, transactionID)
	if errors.Is(err, domain.ErrDonationNotFound) {
		return res, nil
	}
	if err != nil {
		s.log.Error("failed to load donation after cancel", zap.String("transaction_id", transactionID), zap.Error(err))
		return res, nil
	}
	if d.Status.IsTerminal() {
		return res, nil
	}

	if err := s.repo.UpdateStatus(ctx, transactionID, domain.TransactionStatusCancelled, nil); err != nil {
		s.log.Error("failed to update ledger after cancel", zap.String("transaction_id", transactionID), zap.Error(err))
	}
	if err := s.publisher.PublishStatusChanged(ctx, s.campaign, transactionID, d.Status, domain.TransactionStatusCancelled, d.AmountMinor, nil); err != nil {
		s.log.Warn("status changed event not published", zap.String("transaction_id", transactionID), zap.Error(err))
	}
	return res, nil
}

func (s *adminServiceImpl) ListDonations(ctx context.Context, limit, offset int) ([]*domain.Donation, error) {
	if s.repo == nil {
		return []*domain.Donation{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByCampaign(ctx, s.campaign, limit, offset)
}
