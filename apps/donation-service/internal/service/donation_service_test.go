package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/identity"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/repository"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/session"
	"github.com/prohmpiriya/donation-rush/pkg/config"
)

// MockGateway is a mock implementation of gateway.PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateTransaction(ctx context.Context, req *gateway.TransactionRequest) (*gateway.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *MockGateway) GetStatus(ctx context.Context, transactionID string) (*gateway.Result, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *MockGateway) Cancel(ctx context.Context, transactionID string) (*gateway.CancelResult, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CancelResult), args.Error(1)
}

func (m *MockGateway) CreateCardToken(ctx context.Context, card *domain.CardData) (string, error) {
	args := m.Called(ctx, card)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) ListTransactions(ctx context.Context, filter *gateway.ListFilter) (*gateway.TransactionPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.TransactionPage), args.Error(1)
}

func (m *MockGateway) Name() string {
	return "mock"
}

// MockPublisher records published events
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishDonationCreated(ctx context.Context, d *domain.Donation) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockPublisher) PublishStatusChanged(ctx context.Context, campaign, transactionID string, from, to domain.TransactionStatus, amountMinor int64, paidAt *time.Time) error {
	return m.Called(ctx, campaign, transactionID, from, to, amountMinor, paidAt).Error(0)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       DonationService
	gw        *MockGateway
	store     *session.MemoryStore
	repo      *repository.MemoryDonationRepository
	publisher *MockPublisher
	now       *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := fixedNow
	f := &fixture{
		gw:        new(MockGateway),
		store:     session.NewMemoryStore(),
		repo:      repository.NewMemoryDonationRepository(),
		publisher: new(MockPublisher),
		now:       &now,
	}
	f.publisher.On("PublishDonationCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.publisher.On("PublishStatusChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	f.svc = NewDonationService(f.store, f.gw, f.repo, f.publisher, identity.NewGenerator(nil), &DonationServiceConfig{
		Campaign:           "isabela",
		MinimumAmountMinor: 2000,
		GoalMinor:          100000,
		PixExpiry:          time.Hour,
		PostbackURL:        "https://example.org/webhook/isabela",
		Addons: []Addon{
			{ID: "transport", AmountMinor: 1000, BeneficiaryID: "transport_fund", Label: "Transporte"},
			{ID: "meal", AmountMinor: 1500, BeneficiaryID: "meal_fund"},
		},
		Now: func() time.Time { return *f.now },
	})
	return f
}

func pendingResult(id string, amount int64, expiresAt *time.Time) *gateway.Result {
	return &gateway.Result{Transaction: domain.Transaction{
		ID:          id,
		Status:      domain.TransactionStatusPending,
		Method:      domain.PaymentMethodPix,
		AmountMinor: amount,
		Currency:    "BRL",
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
		ExpiresAt:   expiresAt,
		Artifact:    domain.PaymentArtifact{Pix: &domain.PixArtifact{Code: "000201pix"}},
	}}
}

func TestProcessDonation_BelowMinimum(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessDonation(context.Background(), "", &DonationIntent{BaseAmountMinor: 500})
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.ReasonBelowMinimum, verr.Reason)
	assert.Equal(t, int64(1500), verr.ShortfallMinor)
	assert.Contains(t, verr.Error(), "R$ 20,00")
	f.gw.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.store.Len())
}

func TestProcessDonation_NoLineItems(t *testing.T) {
	f := newFixture(t)
	f.gw.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(req *gateway.TransactionRequest) bool {
		return req.AmountMinor() == 5000 && req.Split == nil && req.ExternalID != "" &&
			req.PostbackURL == "https://example.org/webhook/isabela"
	})).Return(pendingResult("tx-1", 5000, nil), nil).Once()

	res, err := f.svc.ProcessDonation(context.Background(), "client-1", &DonationIntent{BaseAmountMinor: 5000})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "tx-1", res.TransactionID)
	assert.Equal(t, int64(5000), res.AmountMinor)
	assert.Nil(t, res.Split)
	assert.Equal(t, domain.StateActive, res.State)
	require.NotNil(t, res.Artifact.Pix)
	assert.Equal(t, "000201pix", res.Artifact.Pix.Code)

	// expiry falls back to createdAt + PixExpiry
	require.NotNil(t, res.ExpiresAt)
	assert.True(t, res.ExpiresAt.Equal(fixedNow.Add(time.Hour)))

	stored, err := f.store.Get(context.Background(), session.Key("isabela", "client-1"))
	require.NoError(t, err)
	assert.Equal(t, "tx-1", stored.Transaction.ID)
	assert.Equal(t, int64(5000), stored.BaseAmountMinor)
	assert.Equal(t, "mock", stored.Provider)

	assert.Equal(t, 1, f.repo.Count())
	f.publisher.AssertCalled(t, "PublishDonationCreated", mock.Anything, mock.MatchedBy(func(d *domain.Donation) bool {
		return d.TransactionID == "tx-1" && d.AmountMinor == 5000
	}))
	f.gw.AssertExpectations(t)
}

func TestProcessDonation_WithLineItemSplit(t *testing.T) {
	f := newFixture(t)
	f.gw.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(req *gateway.TransactionRequest) bool {
		return req.AmountMinor() == 6500 && len(req.Split) == 1 &&
			req.Split[0] == domain.SplitAllocation{BeneficiaryID: "X", Percentage: 23}
	})).Return(&gateway.Result{
		Transaction: pendingResult("tx-2", 6500, nil).Transaction,
		Split:       []domain.SplitAllocation{{BeneficiaryID: "X", Percentage: 23}},
	}, nil).Once()

	res, err := f.svc.ProcessDonation(context.Background(), "", &DonationIntent{
		BaseAmountMinor: 5000,
		LineItems:       []domain.LineItem{{BeneficiaryID: "X", AmountMinor: 1500}},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.SplitAllocation{{BeneficiaryID: "X", Percentage: 23}}, res.Split)
	f.gw.AssertExpectations(t)
}

func TestProcessDonation_SplitOmittedWhenProviderIgnoresIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(req *gateway.TransactionRequest) bool {
		return len(req.Split) == 1
	})).Return(pendingResult("tx-2b", 6500, nil), nil).Once()

	res, err := f.svc.ProcessDonation(ctx, "", &DonationIntent{
		BaseAmountMinor: 5000,
		LineItems:       []domain.LineItem{{BeneficiaryID: "X", AmountMinor: 1500}},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Split)

	stored, err := f.store.Get(ctx, session.Key("isabela", ""))
	require.NoError(t, err)
	assert.Nil(t, stored.Split)
}

func TestProcessDonation_Addons(t *testing.T) {
	f := newFixture(t)
	f.gw.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(req *gateway.TransactionRequest) bool {
		return req.AmountMinor() == 7500 && len(req.LineItems) == 2 && req.LineItems[0].BeneficiaryID == "transport_fund"
	})).Return(pendingResult("tx-3", 7500, nil), nil).Once()

	_, err := f.svc.ProcessDonation(context.Background(), "", &DonationIntent{
		BaseAmountMinor: 5000,
		AddonIDs:        []string{"transport", "MEAL"},
	})
	require.NoError(t, err)

	_, err = f.svc.ProcessDonation(context.Background(), "", &DonationIntent{
		BaseAmountMinor: 5000,
		AddonIDs:        []string{"yacht"},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownAddon)
	f.gw.AssertNumberOfCalls(t, "CreateTransaction", 1)
}

func TestProcessDonation_GeneratesCustomer(t *testing.T) {
	f := newFixture(t)
	var sent domain.Customer
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).(*gateway.TransactionRequest).Customer
		}).
		Return(pendingResult("tx-4", 5000, nil), nil).Once()

	_, err := f.svc.ProcessDonation(context.Background(), "", &DonationIntent{
		BaseAmountMinor: 5000,
		Customer:        &domain.Customer{Name: "  Maria Silva "},
	})
	require.NoError(t, err)

	assert.Equal(t, "Maria Silva", sent.Name)
	assert.True(t, identity.ValidTaxID(sent.TaxID))
	assert.NotEmpty(t, sent.Email)
	assert.Len(t, sent.Phone, 13)
}

func TestProcessDonation_InvalidCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessDonation(context.Background(), "", &DonationIntent{
		BaseAmountMinor: 5000,
		Customer:        &domain.Customer{Email: "not-an-email"},
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.ReasonInvalidCustomer, verr.Reason)
	f.gw.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
}

func TestProcessDonation_CreditCardNeedsToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessDonation(context.Background(), "", &DonationIntent{
		BaseAmountMinor: 5000,
		Method:          domain.PaymentMethodCreditCard,
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.ReasonInvalidCard, verr.Reason)
	f.gw.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
}

func TestProcessDonation_ExternalID(t *testing.T) {
	f := newFixture(t)
	var ids []string
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ids = append(ids, args.Get(1).(*gateway.TransactionRequest).ExternalID)
		}).
		Return(pendingResult("tx-5", 5000, nil), nil)

	_, err := f.svc.ProcessDonation(context.Background(), "a", &DonationIntent{BaseAmountMinor: 5000})
	require.NoError(t, err)
	_, err = f.svc.ProcessDonation(context.Background(), "b", &DonationIntent{BaseAmountMinor: 5000, ExternalID: "idem-key-1"})
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.Regexp(t, regexp.MustCompile(`^isabela_campaign_1772366400000_[0-9a-f]{8}$`), ids[0])
	assert.Equal(t, "idem-key-1", ids[1])
}

func TestProcessDonation_GatewayErrorKeepsPreviousSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(pendingResult("tx-old", 5000, nil), nil).Once()
	_, err := f.svc.ProcessDonation(ctx, "", &DonationIntent{BaseAmountMinor: 5000})
	require.NoError(t, err)

	rejected := &gateway.Error{Kind: gateway.KindRejected, Provider: "mock", Operation: "create", StatusCode: 400, Message: "CPF inválido"}
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(nil, rejected).Once()

	_, err = f.svc.ProcessDonation(ctx, "", &DonationIntent{BaseAmountMinor: 6000})
	assert.Same(t, rejected, err)
	assert.Equal(t, "CPF inválido", gateway.UserMessage(err))

	stored, err := f.store.Get(ctx, session.Key("isabela", ""))
	require.NoError(t, err)
	assert.Equal(t, "tx-old", stored.Transaction.ID)
}

func TestCheckCurrentPaymentStatus_NoSession(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.CheckCurrentPaymentStatus(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Nil(t, res.Session)
	f.gw.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
}

func TestCheckCurrentPaymentStatus_Approved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(pendingResult("tx-6", 5000, nil), nil).Once()
	_, err := f.svc.ProcessDonation(ctx, "", &DonationIntent{BaseAmountMinor: 5000})
	require.NoError(t, err)

	paidAt := fixedNow.Add(5 * time.Minute)
	fresh := &gateway.Result{Transaction: domain.Transaction{
		ID:          "tx-6",
		Status:      domain.TransactionStatusApproved,
		AmountMinor: 1, // amounts from a refresh are ignored
		PaidAt:      &paidAt,
	}}
	f.gw.On("GetStatus", mock.Anything, "tx-6").Return(fresh, nil).Once()

	res, err := f.svc.CheckCurrentPaymentStatus(ctx, "")
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.True(t, res.Changed)
	assert.False(t, res.Expired)
	assert.Equal(t, domain.TransactionStatusApproved, res.Session.Transaction.Status)
	assert.Equal(t, domain.StateSettled, res.Session.State)
	assert.Equal(t, int64(5000), res.Session.Transaction.AmountMinor)

	d, err := f.repo.GetByTransactionID(ctx, "tx-6")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusApproved, d.Status)
	f.publisher.AssertCalled(t, "PublishStatusChanged", mock.Anything, "isabela", "tx-6",
		domain.TransactionStatusPending, domain.TransactionStatusApproved, int64(5000), mock.Anything)

	// terminal sessions are answered without asking the provider again
	res, err = f.svc.CheckCurrentPaymentStatus(ctx, "")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	f.gw.AssertNumberOfCalls(t, "GetStatus", 1)
}

func TestCheckCurrentPaymentStatus_PendingPastExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp := fixedNow.Add(30 * time.Minute)
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(pendingResult("tx-7", 5000, &exp), nil).Once()
	_, err := f.svc.ProcessDonation(ctx, "", &DonationIntent{BaseAmountMinor: 5000})
	require.NoError(t, err)

	*f.now = fixedNow.Add(31 * time.Minute)
	f.gw.On("GetStatus", mock.Anything, "tx-7").Return(pendingResult("tx-7", 5000, nil), nil).Once()

	res, err := f.svc.CheckCurrentPaymentStatus(ctx, "")
	require.NoError(t, err)
	assert.True(t, res.Expired)
	assert.False(t, res.Changed)
	assert.Equal(t, domain.StateExpired, res.Session.State)
}

func TestCheckCurrentPaymentStatus_TransientError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(pendingResult("tx-8", 5000, nil), nil).Once()
	_, err := f.svc.ProcessDonation(ctx, "", &DonationIntent{BaseAmountMinor: 5000})
	require.NoError(t, err)

	transient := &gateway.Error{Kind: gateway.KindTransient, Provider: "mock", Operation: "status", StatusCode: 503}
	f.gw.On("GetStatus", mock.Anything, "tx-8").Return(nil, transient).Once()

	_, err = f.svc.CheckCurrentPaymentStatus(ctx, "")
	assert.True(t, gateway.IsTransient(err))

	stored, _ := f.store.Get(ctx, session.Key("isabela", ""))
	assert.Equal(t, domain.TransactionStatusPending, stored.Transaction.Status)
}

func TestCheckCurrentPaymentStatus_UnreadablePastExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp := fixedNow.Add(30 * time.Minute)
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(pendingResult("tx-9", 5000, &exp), nil).Once()
	_, err := f.svc.ProcessDonation(ctx, "", &DonationIntent{BaseAmountMinor: 5000})
	require.NoError(t, err)

	*f.now = fixedNow.Add(2 * time.Hour)
	notFound := &gateway.Error{Kind: gateway.KindNotFound, Provider: "mock", Operation: "status", StatusCode: 404}
	f.gw.On("GetStatus", mock.Anything, "tx-9").Return(nil, notFound).Once()

	res, err := f.svc.CheckCurrentPaymentStatus(ctx, "")
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.True(t, res.Expired)
	assert.False(t, res.Changed)
	assert.Equal(t, domain.StateExpired, res.Session.State)

	stored, _ := f.store.Get(ctx, session.Key("isabela", ""))
	assert.Equal(t, domain.StateExpired, stored.State)
	assert.Equal(t, domain.TransactionStatusPending, stored.Transaction.Status)
}

func TestCheckCurrentPaymentStatus_UnreadableBeforeExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp := fixedNow.Add(30 * time.Minute)
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(pendingResult("tx-10", 5000, &exp), nil).Once()
	_, err := f.svc.ProcessDonation(ctx, "", &DonationIntent{BaseAmountMinor: 5000})
	require.NoError(t, err)

	notFound := &gateway.Error{Kind: gateway.KindNotFound, Provider: "mock", Operation: "status", StatusCode: 404}
	f.gw.On("GetStatus", mock.Anything, "tx-10").Return(nil, notFound).Once()

	_, err = f.svc.CheckCurrentPaymentStatus(ctx, "")
	assert.Equal(t, gateway.KindNotFound, gateway.KindOf(err))
}

func TestIsExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expired, err := f.svc.IsExpired(ctx, "")
	require.NoError(t, err)
	assert.False(t, expired, "absent session is never expired")

	past := fixedNow.Add(-time.Minute)
	require.NoError(t, f.store.Set(ctx, session.Key("isabela", "a"), &domain.Session{ExpiresAt: &past}))
	expired, err = f.svc.IsExpired(ctx, "a")
	require.NoError(t, err)
	assert.True(t, expired)

	require.NoError(t, f.store.Set(ctx, session.Key("isabela", "b"), &domain.Session{}))
	expired, err = f.svc.IsExpired(ctx, "b")
	require.NoError(t, err)
	assert.False(t, expired, "session without expiresAt is never expired")
}

func TestClearCurrentTransaction_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, session.Key("isabela", ""), &domain.Session{}))

	require.NoError(t, f.svc.ClearCurrentTransaction(ctx, ""))
	require.NoError(t, f.svc.ClearCurrentTransaction(ctx, ""))

	res, err := f.svc.CheckCurrentPaymentStatus(ctx, "")
	require.NoError(t, err)
	assert.False(t, res.Available)
}

func TestCancelCurrentTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CancelCurrentTransaction(ctx, "")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(pendingResult("tx-9", 5000, nil), nil).Once()
	_, err = f.svc.ProcessDonation(ctx, "", &DonationIntent{BaseAmountMinor: 5000})
	require.NoError(t, err)

	f.gw.On("Cancel", mock.Anything, "tx-9").Return(&gateway.CancelResult{ID: "tx-9", Status: domain.TransactionStatusCancelled}, nil).Once()
	res, err := f.svc.CancelCurrentTransaction(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCancelled, res.Status)

	stored, _ := f.store.Get(ctx, session.Key("isabela", ""))
	assert.Equal(t, domain.StateCancelled, stored.State)

	_, err = f.svc.CancelCurrentTransaction(ctx, "")
	assert.ErrorIs(t, err, domain.ErrTerminalStatus)
	f.gw.AssertNumberOfCalls(t, "Cancel", 1)
}

func TestCreateCardToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCardToken(ctx, &domain.CardData{Number: "4111"})
	assert.True(t, domain.IsValidationError(err))
	f.gw.AssertNotCalled(t, "CreateCardToken", mock.Anything, mock.Anything)

	card := &domain.CardData{
		Number:         "4111111111111111",
		CVV:            "123",
		ExpMonth:       "12",
		ExpYear:        "30",
		HolderName:     "MARIA SILVA",
		HolderDocument: "52998224725",
	}
	f.gw.On("CreateCardToken", mock.Anything, card).Return("tok_1", nil).Once()
	token, err := f.svc.CreateCardToken(ctx, card)
	require.NoError(t, err)
	assert.Equal(t, "tok_1", token)
}

func TestCampaignStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(pendingResult("tx-10", 25000, nil), nil).Once()
	_, err := f.svc.ProcessDonation(ctx, "", &DonationIntent{BaseAmountMinor: 25000})
	require.NoError(t, err)
	require.NoError(t, f.repo.UpdateStatus(ctx, "tx-10", domain.TransactionStatusApproved, nil))

	stats, err := f.svc.CampaignStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), stats.RaisedMinor)
	assert.Equal(t, int64(100000), stats.GoalMinor)
	assert.Equal(t, 25, stats.ProgressPercent)
}

func TestNewDonationServiceConfig(t *testing.T) {
	cfg, err := NewDonationServiceConfig(&config.CampaignConfig{
		Name:      "isabela",
		MinAmount: "20.00",
		Goal:      "80.000,00",
		PixExpiry: time.Hour,
		Addons: []config.AddonConfig{
			{ID: "meal", Amount: "15.00", BeneficiaryID: "meal_fund", Label: "Refeição"},
		},
	}, &config.GatewayConfig{PostbackURL: "https://example.org/hook"})
	require.NoError(t, err)

	assert.Equal(t, int64(2000), cfg.MinimumAmountMinor)
	assert.Equal(t, int64(8000000), cfg.GoalMinor)
	assert.Equal(t, "https://example.org/hook", cfg.PostbackURL)
	require.Len(t, cfg.Addons, 1)
	assert.Equal(t, int64(1500), cfg.Addons[0].AmountMinor)

	_, err = NewDonationServiceConfig(&config.CampaignConfig{MinAmount: "abc"}, nil)
	assert.Error(t, err)
}
