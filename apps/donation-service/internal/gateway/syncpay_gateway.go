package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/money"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/resolver"
	"github.com/prohmpiriya/donation-rush/pkg/logger"
)

var (
	SyncPaySandboxURLs    = []string{"https://sandbox.syncpay.io", "https://api-sandbox.syncpay.pro", "https://api.syncpay.pro"}
	SyncPayProductionURLs = []string{"https://api.syncpay.io", "https://api.syncpay.pro"}
	SyncPayAuthMethods    = []string{resolver.MethodOAuth2Basic, resolver.MethodClientHeaders, resolver.MethodBasicToken}
)

// SyncPayGatewayConfig holds SyncPay settings
type SyncPayGatewayConfig struct {
	RequestTimeout time.Duration
	PostbackURL    string
	Metadata       string
	HTTPClient     *http.Client
}

// SyncPayGateway talks to SyncPay with a bearer token issued by the resolver
type SyncPayGateway struct {
	config    *SyncPayGatewayConfig
	resolver  *resolver.Resolver
	transport *transport
	demo      *DemoGateway
}

// NewSyncPayGateway creates a SyncPay gateway
func NewSyncPayGateway(config *SyncPayGatewayConfig, r *resolver.Resolver, demo *DemoGateway) *SyncPayGateway {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if demo == nil {
		demo = NewDemoGateway(nil)
	}
	return &SyncPayGateway{
		config:    config,
		resolver:  r,
		transport: newTransport("syncpay", config.HTTPClient, config.RequestTimeout),
		demo:      demo,
	}
}

type syncPayAddress struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipcode"`
}

type syncPayCustomer struct {
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	CPF     string          `json:"cpf"`
	Phone   string          `json:"phone,omitempty"`
	Address *syncPayAddress `json:"address,omitempty"`
}

type syncPayPix struct {
	ExpiresInDays int `json:"expiresInDays"`
}

type syncPayCharge struct {
	Amount      int64                    `json:"amount"`
	Customer    syncPayCustomer          `json:"customer"`
	Pix         syncPayPix               `json:"pix"`
	PostbackURL string                   `json:"postbackUrl,omitempty"`
	Metadata    string                   `json:"metadata,omitempty"`
	Traceable   bool                     `json:"traceable"`
	ExternalID  string                   `json:"externalId,omitempty"`
	Split       []domain.SplitAllocation `json:"split,omitempty"`
}

type syncPayChargeResponse struct {
	IDTransaction     string `json:"idTransaction"`
	PaymentCode       string `json:"paymentCode"`
	PaymentCodeBase64 string `json:"paymentCodeBase64"`
	StatusTransaction string `json:"status_transaction"`
	ClientID          string `json:"client_id"`
}

type syncPayStatusResponse struct {
	Situacao      string     `json:"situacao"`
	ValorBruto    flexAmount `json:"valor_bruto"`
	DataTransacao string     `json:"data_transacao"`
}

func (g *SyncPayGateway) headers(cred resolver.Credential) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cred.Token}
}

func (g *SyncPayGateway) buildCharge(req *TransactionRequest) *syncPayCharge {
	body := &syncPayCharge{
		Amount: req.AmountMinor(),
		Customer: syncPayCustomer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			CPF:   req.Customer.TaxID,
			Phone: req.Customer.Phone,
		},
		Pix:         syncPayPix{ExpiresInDays: 1},
		PostbackURL: req.PostbackURL,
		Metadata:    req.Description,
		Traceable:   true,
		ExternalID:  req.ExternalID,
		Split:       req.Split,
	}
	if body.PostbackURL == "" {
		body.PostbackURL = g.config.PostbackURL
	}
	if body.Metadata == "" {
		body.Metadata = g.config.Metadata
	}

	addr := req.Optional.Address
	if addr == nil {
		addr = req.Customer.Address
	}
	if addr != nil {
		body.Customer.Address = &syncPayAddress{
			Street:       addr.Street,
			Number:       addr.Number,
			Complement:   addr.Complement,
			Neighborhood: addr.District,
			City:         addr.City,
			State:        addr.State,
			ZipCode:      addr.ZipCode,
		}
	}
	return body
}

// CreateTransaction creates a PIX charge via POST /v1/gateway/api/
func (g *SyncPayGateway) CreateTransaction(ctx context.Context, req *TransactionRequest) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("transaction request is required")
	}
	if req.Method != "" && req.Method != domain.PaymentMethodPix {
		return nil, fmt.Errorf("%w: syncpay only accepts PIX, got %s", ErrUnsupported, req.Method)
	}
	res, err := g.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if res.DemoMode {
		return g.demo.CreateTransaction(ctx, req)
	}

	var out syncPayChargeResponse
	_, err = g.transport.do(ctx, call{
		operation: "create_transaction",
		method:    http.MethodPost,
		url:       res.Candidate.BaseURL + "/v1/gateway/api/",
		headers:   g.headers(res.Credential),
		body:      g.buildCharge(req),
	}, &out)
	if err != nil {
		return nil, g.afterError(err)
	}
	if out.IDTransaction == "" {
		return nil, &Error{Kind: KindTransient, Provider: g.Name(), Operation: "create_transaction", Message: "response carried no transaction id"}
	}

	status := g.status(out.IDTransaction, out.StatusTransaction)
	now := time.Now().UTC()
	return &Result{Transaction: domain.Transaction{
		ID:          out.IDTransaction,
		CustomID:    req.ExternalID,
		Status:      status,
		Method:      domain.PaymentMethodPix,
		AmountMinor: req.AmountMinor(),
		Currency:    money.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
		Artifact: domain.PaymentArtifact{
			Pix: &domain.PixArtifact{Code: out.PaymentCode, QRCode: out.PaymentCodeBase64},
		},
	}, Split: req.Split}, nil
}

// GetStatus reads a transaction via the getTransactionStatus endpoint.
// valor_bruto is a major-unit amount.
func (g *SyncPayGateway) GetStatus(ctx context.Context, transactionID string) (*Result, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("transaction ID is required")
	}
	if IsDemoTransaction(transactionID) {
		return g.demo.GetStatus(ctx, transactionID)
	}
	res, err := g.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if res.DemoMode {
		return nil, g.unreachable("get_status")
	}

	var out syncPayStatusResponse
	_, err = g.transport.do(ctx, call{
		operation: "get_status",
		method:    http.MethodGet,
		url:       res.Candidate.BaseURL + "/s1/getTransaction/api/getTransactionStatus.php?id_transaction=" + url.QueryEscape(transactionID),
		headers:   g.headers(res.Credential),
	}, &out)
	if err != nil {
		return nil, g.afterError(err)
	}

	tx := domain.Transaction{
		ID:          transactionID,
		Status:      g.status(transactionID, out.Situacao),
		Method:      domain.PaymentMethodPix,
		AmountMinor: majorToMinor(out.ValorBruto),
		Currency:    money.Currency,
		Artifact:    domain.PaymentArtifact{Pix: &domain.PixArtifact{}},
	}
	if t := parseTime(out.DataTransacao); t != nil {
		tx.CreatedAt = *t
	}
	tx.UpdatedAt = time.Now().UTC()
	return &Result{Transaction: tx}, nil
}

// Balance returns the account balance in minor units
func (g *SyncPayGateway) Balance(ctx context.Context) (int64, error) {
	res, err := g.resolver.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	if res.DemoMode {
		return 0, g.unreachable("balance")
	}

	var out struct {
		SaldoAtual flexAmount `json:"saldo_atual"`
	}
	_, err = g.transport.do(ctx, call{
		operation: "balance",
		method:    http.MethodGet,
		url:       res.Candidate.BaseURL + "/s1/getsaldo/api/",
		headers:   g.headers(res.Credential),
	}, &out)
	if err != nil {
		return 0, g.afterError(err)
	}
	return majorToMinor(out.SaldoAtual), nil
}

// Cancel is not offered by SyncPay
func (g *SyncPayGateway) Cancel(ctx context.Context, transactionID string) (*CancelResult, error) {
	if IsDemoTransaction(transactionID) {
		return g.demo.Cancel(ctx, transactionID)
	}
	return nil, fmt.Errorf("%w: syncpay cancel", ErrUnsupported)
}

// CreateCardToken is not offered by SyncPay
func (g *SyncPayGateway) CreateCardToken(ctx context.Context, card *domain.CardData) (string, error) {
	return "", fmt.Errorf("%w: syncpay card tokens", ErrUnsupported)
}

// ListTransactions is not offered by SyncPay
func (g *SyncPayGateway) ListTransactions(ctx context.Context, filter *ListFilter) (*TransactionPage, error) {
	return nil, fmt.Errorf("%w: syncpay transaction listing", ErrUnsupported)
}

// Probe reports reachability of every configured endpoint
func (g *SyncPayGateway) Probe(ctx context.Context) *ProbeReport {
	return probeReport(ctx, g.Name(), g.resolver)
}

// Name returns the gateway name
func (g *SyncPayGateway) Name() string {
	return "syncpay"
}

func (g *SyncPayGateway) status(id, raw string) domain.TransactionStatus {
	status, ok := domain.NormalizeStatus(raw)
	if !ok && raw != "" {
		logger.Get().Warn("Unknown SyncPay status, treating as pending",
			zap.String("transaction_id", id),
			zap.String("status", raw),
		)
	}
	return status
}

func (g *SyncPayGateway) afterError(err error) error {
	if KindOf(err) == KindAuthInvalid {
		g.resolver.Invalidate()
	}
	return err
}

func (g *SyncPayGateway) unreachable(operation string) error {
	return &Error{Kind: KindUnreachable, Provider: g.Name(), Operation: operation, Message: "no endpoint available, running in demo mode"}
}

func majorToMinor(f flexAmount) int64 {
	if f == "" {
		return 0
	}
	d, err := decimal.NewFromString(string(f))
	if err != nil {
		return 0
	}
	return money.ToMinor(d)
}
