package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/events"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/identity"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/money"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/repository"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/session"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/split"
	"github.com/prohmpiriya/donation-rush/pkg/logger"
	"github.com/prohmpiriya/donation-rush/pkg/telemetry"
)

// donationServiceImpl implements DonationService
type donationServiceImpl struct {
	store     session.Store
	gateway   gateway.PaymentGateway
	repo      repository.DonationRepository
	publisher events.Publisher
	identity  *identity.Generator
	config    *DonationServiceConfig
	log       *logger.Logger

	// inflight holds the keys of scopes with a create in progress
	inflight sync.Map
}

// NewDonationService creates a new DonationService. repo and publisher may be nil.
func NewDonationService(
	store session.Store,
	gw gateway.PaymentGateway,
	repo repository.DonationRepository,
	publisher events.Publisher,
	gen *identity.Generator,
	config *DonationServiceConfig,
) DonationService {
	if config == nil {
		config = &DonationServiceConfig{Campaign: "default"}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if gen == nil {
		gen = identity.NewGenerator(nil)
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &donationServiceImpl{
		store:     store,
		gateway:   gw,
		repo:      repo,
		publisher: publisher,
		identity:  gen,
		config:    config,
		log:       logger.Get().With(zap.String("campaign", config.Campaign)),
	}
}

func (s *donationServiceImpl) key(scope string) string {
	return session.Key(s.config.Campaign, scope)
}

func (s *donationServiceImpl) now() time.Time {
	return s.config.Now().UTC()
}

// ProcessDonation runs NONE -> CREATING -> ACTIVE. On failure the stored
// session is left untouched and the error is returned unchanged.
func (s *donationServiceImpl) ProcessDonation(ctx context.Context, scope string, intent *DonationIntent) (*DonationResult, error) {
	if intent == nil {
		return nil, &domain.ValidationError{Reason: domain.ReasonInvalidRequest, Message: "donation intent is required"}
	}

	ctx, span := telemetry.StartSpan(ctx, "donation.process",
		telemetry.AttrCampaign.String(s.config.Campaign),
		telemetry.AttrScope.String(scope),
	)
	defer span.End()

	req, err := s.buildRequest(intent)
	if err != nil {
		telemetry.SetSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(
		telemetry.AttrExternalID.String(req.ExternalID),
		telemetry.AttrAmountMinor.Int64(req.AmountMinor()),
		telemetry.AttrLineItems.Int(len(req.LineItems)),
	)

	key := s.key(scope)
	if _, busy := s.inflight.LoadOrStore(key, req.ExternalID); busy {
		s.log.Warn("donation already being created for this scope, last write wins",
			zap.String("key", key),
			zap.String("external_id", req.ExternalID),
		)
	} else {
		defer s.inflight.Delete(key)
	}

	res, err := s.gateway.CreateTransaction(ctx, req)
	if err != nil {
		telemetry.SetSpanError(span, err)
		s.log.Warn("failed to create transaction",
			zap.String("external_id", req.ExternalID),
			zap.String("kind", string(gateway.KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	tx := res.Transaction
	sess := &domain.Session{
		Campaign:        s.config.Campaign,
		ExternalID:      req.ExternalID,
		Provider:        s.gateway.Name(),
		State:           domain.StateFor(tx.Status),
		Transaction:     tx,
		BaseAmountMinor: req.BaseAmountMinor,
		LineItems:       req.LineItems,
		Split:           res.Split,
		DemoMode:        res.DemoMode,
		ExpiresAt:       s.expiryOf(&tx),
		Timestamp:       s.now(),
	}
	if sess.State == domain.StateNone {
		sess.State = domain.StateActive
	}

	// the provider transaction exists at this point, so a storage failure
	// is logged and the donor still receives the payment artifact
	if err := s.store.Set(ctx, key, sess); err != nil {
		s.log.Error("failed to persist current donation",
			zap.String("key", key),
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
	}
	s.record(ctx, sess, req.Customer.Email)

	s.log.Info("donation created",
		zap.String("transaction_id", tx.ID),
		zap.String("external_id", req.ExternalID),
		zap.Int64("amount_minor", tx.AmountMinor),
		zap.Bool("demo_mode", res.DemoMode),
	)

	return &DonationResult{
		Success:         true,
		TransactionID:   tx.ID,
		ExternalID:      req.ExternalID,
		Status:          tx.Status,
		State:           sess.State,
		AmountMinor:     tx.AmountMinor,
		BaseAmountMinor: req.BaseAmountMinor,
		Artifact:        tx.Artifact,
		ExpiresAt:       sess.ExpiresAt,
		Split:           res.Split,
		DemoMode:        res.DemoMode,
	}, nil
}

// buildRequest validates the intent and fills everything the provider needs.
// No gateway call happens before it succeeds.
func (s *donationServiceImpl) buildRequest(intent *DonationIntent) (*gateway.TransactionRequest, error) {
	method := intent.Method
	if method == "" {
		method = domain.PaymentMethodPix
	}
	if !method.Valid() {
		return nil, &domain.ValidationError{
			Reason:  domain.ReasonInvalidRequest,
			Field:   "method",
			Message: fmt.Sprintf("%s: %q", domain.ErrInvalidMethod, method),
		}
	}

	if intent.BaseAmountMinor < 0 {
		return nil, &domain.ValidationError{Reason: domain.ReasonInvalidRequest, Field: "amount", Message: domain.ErrInvalidAmount.Error()}
	}

	items := make([]domain.LineItem, 0, len(intent.LineItems)+len(intent.AddonIDs))
	for _, item := range intent.LineItems {
		if item.AmountMinor < 0 || strings.TrimSpace(item.BeneficiaryID) == "" {
			return nil, &domain.ValidationError{Reason: domain.ReasonInvalidRequest, Field: "lineItems", Message: "line items need a beneficiary and a non-negative amount"}
		}
		items = append(items, item)
	}
	for _, id := range intent.AddonIDs {
		addon, ok := s.addon(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAddon, id)
		}
		items = append(items, addon.LineItem())
	}

	req := &gateway.TransactionRequest{
		BaseAmountMinor: intent.BaseAmountMinor,
		LineItems:       items,
		Method:          method,
		ExternalID:      strings.TrimSpace(intent.ExternalID),
		Description:     intent.Description,
		CardToken:       intent.CardToken,
		Installments:    intent.Installments,
		PostbackURL:     s.config.PostbackURL,
		Optional:        intent.Optional,
	}

	if total := req.AmountMinor(); total < s.config.MinimumAmountMinor {
		return nil, domain.NewBelowMinimumError(total, s.config.MinimumAmountMinor, money.Format(s.config.MinimumAmountMinor))
	}

	if method == domain.PaymentMethodCreditCard && req.CardToken == "" {
		return nil, &domain.ValidationError{Reason: domain.ReasonInvalidCard, Field: "cardToken", Message: "card token is required for credit card donations"}
	}

	customer, err := s.fillCustomer(intent.Customer)
	if err != nil {
		return nil, err
	}
	req.Customer = *customer

	if len(items) > 0 {
		req.Split = split.Compute(req.BaseAmountMinor, items)
	}
	if req.ExternalID == "" {
		req.ExternalID = s.newExternalID()
	}
	return req, nil
}

// fillCustomer copies the given customer and generates every missing field
func (s *donationServiceImpl) fillCustomer(in *domain.Customer) (*domain.Customer, error) {
	c := &domain.Customer{}
	if in != nil {
		*c = *in
		if in.Address != nil {
			addr := *in.Address
			c.Address = &addr
		}
	}
	c.Normalize()

	if c.Name == "" {
		c.Name = s.identity.GenerateName()
	}
	if c.Email == "" {
		c.Email = s.identity.GenerateEmail()
	}
	if c.TaxID == "" {
		c.TaxID = s.identity.GenerateTaxID()
	}
	if c.Phone == "" {
		c.Phone = s.identity.GeneratePhoneNumber()
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// newExternalID is "<campaign>_campaign_<unix ms>_<8 hex>"
func (s *donationServiceImpl) newExternalID() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_campaign_%d_%s", s.config.Campaign, s.now().UnixMilli(), suffix)
}

// expiryOf prefers the provider's expiry and falls back to CreatedAt + PixExpiry
func (s *donationServiceImpl) expiryOf(tx *domain.Transaction) *time.Time {
	if tx.ExpiresAt != nil {
		exp := *tx.ExpiresAt
		return &exp
	}
	if s.config.PixExpiry <= 0 {
		return nil
	}
	created := tx.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	exp := created.Add(s.config.PixExpiry)
	return &exp
}

func (s *donationServiceImpl) addon(id string) (Addon, bool) {
	for _, a := range s.config.Addons {
		if strings.EqualFold(a.ID, id) {
			return a, true
		}
	}
	return Addon{}, false
}

// record appends the donation to the ledger and announces it
func (s *donationServiceImpl) record(ctx context.Context, sess *domain.Session, email string) {
	d, err := domain.NewDonation(sess, email)
	if err != nil {
		s.log.Error("failed to build ledger row", zap.String("transaction_id", sess.Transaction.ID), zap.Error(err))
		return
	}
	if s.repo != nil {
		if err := s.repo.Create(ctx, d); err != nil {
			s.log.Error("failed to record donation", zap.String("transaction_id", d.TransactionID), zap.Error(err))
		}
	}
	if err := s.publisher.PublishDonationCreated(ctx, d); err != nil {
		s.log.Warn("donation created event not published", zap.String("transaction_id", d.TransactionID), zap.Error(err))
	}
}

// statusChanged updates the ledger and announces a new status
func (s *donationServiceImpl) statusChanged(ctx context.Context, tx *domain.Transaction, from domain.TransactionStatus) {
	if s.repo != nil {
		err := s.repo.UpdateStatus(ctx, tx.ID, tx.Status, tx.PaidAt)
		if err != nil && !errors.Is(err, domain.ErrDonationNotFound) {
			s.log.Error("failed to update ledger status", zap.String("transaction_id", tx.ID), zap.Error(err))
		}
	}
	if err := s.publisher.PublishStatusChanged(ctx, s.config.Campaign, tx.ID, from, tx.Status, tx.AmountMinor, tx.PaidAt); err != nil {
		s.log.Warn("status changed event not published", zap.String("transaction_id", tx.ID), zap.Error(err))
	}
}

func (s *donationServiceImpl) CheckCurrentPaymentStatus(ctx context.Context, scope string) (*StatusResult, error) {
	key := s.key(scope)
	sess, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return &StatusResult{Available: false}, nil
	}
	if err != nil {
		return nil, err
	}

	if sess.Transaction.Status.IsTerminal() {
		return &StatusResult{Available: true, Session: sess, Expired: sess.State == domain.StateExpired}, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "donation.check_status", telemetry.AttrTransactionID.String(sess.Transaction.ID))
	defer span.End()

	res, err := s.gateway.GetStatus(ctx, sess.Transaction.ID)
	if err != nil {
		telemetry.SetSpanError(span, err)
		now := s.now()
		if ctx.Err() != nil || gateway.IsTransient(err) || !sess.IsExpired(now) {
			return nil, err
		}
		// the provider cannot answer for this transaction any more, but
		// the session's own expiry still decides the outcome
		s.log.Warn("status unreadable, reporting expiry from session",
			zap.String("transaction_id", sess.Transaction.ID),
			zap.String("kind", string(gateway.KindOf(err))),
			zap.Error(err),
		)
		sess.State = domain.StateExpired
		sess.Timestamp = now
		if err := s.store.Set(ctx, key, sess); err != nil {
			return nil, fmt.Errorf("failed to persist status: %w", err)
		}
		return &StatusResult{Available: true, Session: sess, Expired: true}, nil
	}

	from := sess.Transaction.Status
	if err := sess.ApplyStatus(&res.Transaction); err != nil {
		s.log.Warn("ignoring status update",
			zap.String("transaction_id", sess.Transaction.ID),
			zap.String("from", string(from)),
			zap.String("to", string(res.Transaction.Status)),
			zap.Error(err),
		)
	}
	if res.Transaction.ExpiresAt != nil {
		sess.ExpiresAt = s.expiryOf(&sess.Transaction)
	}

	now := s.now()
	expired := sess.Transaction.Status == domain.TransactionStatusPending && sess.IsExpired(now)
	if expired {
		sess.State = domain.StateExpired
	}
	sess.Timestamp = now

	if err := s.store.Set(ctx, key, sess); err != nil {
		return nil, fmt.Errorf("failed to persist status: %w", err)
	}

	changed := sess.Transaction.Status != from
	if changed {
		s.log.Info("donation status changed",
			zap.String("transaction_id", sess.Transaction.ID),
			zap.String("from", string(from)),
			zap.String("to", string(sess.Transaction.Status)),
		)
		s.statusChanged(ctx, &sess.Transaction, from)
	}

	return &StatusResult{
		Available: true,
		Session:   sess,
		Changed:   changed,
		Expired:   expired || sess.State == domain.StateExpired,
	}, nil
}

func (s *donationServiceImpl) IsExpired(ctx context.Context, scope string) (bool, error) {
	sess, err := s.store.Get(ctx, s.key(scope))
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sess.IsExpired(s.now()), nil
}

func (s *donationServiceImpl) ClearCurrentTransaction(ctx context.Context, scope string) error {
	key := s.key(scope)
	if err := s.store.Clear(ctx, key); err != nil {
		return err
	}
	s.log.Debug("current donation cleared", zap.String("key", key))
	return nil
}

func (s *donationServiceImpl) CancelCurrentTransaction(ctx context.Context, scope string) (*gateway.CancelResult, error) {
	key := s.key(scope)
	sess, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if sess.Transaction.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", domain.ErrTerminalStatus, sess.Transaction.Status)
	}

	res, err := s.gateway.Cancel(ctx, sess.Transaction.ID)
	if err != nil {
		return nil, err
	}

	from := sess.Transaction.Status
	if err := sess.ApplyStatus(&domain.Transaction{Status: domain.TransactionStatusCancelled, UpdatedAt: s.now()}); err != nil {
		return nil, err
	}
	sess.Timestamp = s.now()
	if err := s.store.Set(ctx, key, sess); err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}
	s.statusChanged(ctx, &sess.Transaction, from)

	return res, nil
}

func (s *donationServiceImpl) CreateCardToken(ctx context.Context, card *domain.CardData) (string, error) {
	if card == nil {
		return "", &domain.ValidationError{Reason: domain.ReasonInvalidCard, Message: "card data is required"}
	}
	if err := card.Validate(); err != nil {
		return "", err
	}
	return s.gateway.CreateCardToken(ctx, card)
}

func (s *donationServiceImpl) CampaignStats(ctx context.Context) (*domain.CampaignStats, error) {
	stats := &domain.CampaignStats{Campaign: s.config.Campaign}
	if s.repo != nil {
		var err error
		if stats, err = s.repo.CampaignStats(ctx, s.config.Campaign); err != nil {
			return nil, err
		}
	}
	stats.GoalMinor = s.config.GoalMinor
	stats.ComputeProgress()
	return stats, nil
}

func (s *donationServiceImpl) Addons() []Addon {
	return append([]Addon(nil), s.config.Addons...)
}
