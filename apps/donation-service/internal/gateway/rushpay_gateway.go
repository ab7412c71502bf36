package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/money"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/resolver"
	"github.com/prohmpiriya/donation-rush/pkg/logger"
)

const (
	RushPayBaseURL            = "https://pay.rushpayoficial.com/api/v1"
	RushPayMinimumAmountMinor = 500
)

// RushPayGatewayConfig holds RushPay settings
type RushPayGatewayConfig struct {
	RequestTimeout     time.Duration
	MinimumAmountMinor int64
	PostbackURL        string
	HTTPClient         *http.Client
}

// RushPayGateway talks to RushPay with a static secret key
type RushPayGateway struct {
	config    *RushPayGatewayConfig
	resolver  *resolver.Resolver
	transport *transport
	demo      *DemoGateway
}

// NewRushPayGateway creates a RushPay gateway. demo serves every call while
// the resolver is in demo mode.
func NewRushPayGateway(config *RushPayGatewayConfig, r *resolver.Resolver, demo *DemoGateway) *RushPayGateway {
	if config.MinimumAmountMinor <= 0 {
		config.MinimumAmountMinor = RushPayMinimumAmountMinor
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if demo == nil {
		demo = NewDemoGateway(nil)
	}
	return &RushPayGateway{
		config:    config,
		resolver:  r,
		transport: newTransport("rushpay", config.HTTPClient, config.RequestTimeout),
		demo:      demo,
	}
}

type rushPayItem struct {
	UnitPrice int64  `json:"unitPrice"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Tangible  bool   `json:"tangible"`
}

type rushPayCreditCard struct {
	Token        string `json:"token"`
	Installments int    `json:"installments"`
}

// rushPayPurchase field order is the wire order: required fields, card,
// address, UTM, checkout/referrer, externalId, postbackUrl.
type rushPayPurchase struct {
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	CPF           string             `json:"cpf"`
	Phone         string             `json:"phone"`
	PaymentMethod string             `json:"paymentMethod"`
	Amount        int64              `json:"amount"`
	Traceable     bool               `json:"traceable"`
	Items         []rushPayItem      `json:"items"`
	CreditCard    *rushPayCreditCard `json:"creditCard,omitempty"`

	CEP        string `json:"cep,omitempty"`
	Complement string `json:"complement,omitempty"`
	Number     string `json:"number,omitempty"`
	Street     string `json:"street,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`

	UTMQuery    string `json:"utmQuery,omitempty"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	ReferrerURL string `json:"referrerUrl,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
	PostbackURL string `json:"postbackUrl,omitempty"`
}

type rushPayTransaction struct {
	ID           string     `json:"id"`
	CustomID     string     `json:"customId"`
	Status       string     `json:"status"`
	Method       string     `json:"method"`
	Amount       flexAmount `json:"amount"`
	ExpiresAt    string     `json:"expiresAt"`
	CreatedAt    string     `json:"createdAt"`
	UpdatedAt    string     `json:"updatedAt"`
	PaidAt       string     `json:"paidAt"`
	PixCode      string     `json:"pixCode"`
	PixQRCode    string     `json:"pixQrCode"`
	BilletURL    string     `json:"billetUrl"`
	BilletCode   string     `json:"billetCode"`
	Installments int        `json:"installments"`
}

func (g *RushPayGateway) headers(cred resolver.Credential) map[string]string {
	return map[string]string{"Authorization": cred.Token}
}

// buildPurchase maps a request onto the RushPay body. The amount is floored
// to the provider minimum; the caller validates the campaign minimum first.
// RushPay has no split field, so req.Split is not sent.
func (g *RushPayGateway) buildPurchase(req *TransactionRequest) *rushPayPurchase {
	amount := req.AmountMinor()
	if amount < g.config.MinimumAmountMinor {
		amount = g.config.MinimumAmountMinor
	}

	method := req.Method
	if method == "" {
		method = domain.PaymentMethodPix
	}
	title := req.Description
	if title == "" {
		title = "Doação"
	}

	body := &rushPayPurchase{
		Name:          req.Customer.Name,
		Email:         req.Customer.Email,
		CPF:           req.Customer.TaxID,
		Phone:         req.Customer.Phone,
		PaymentMethod: string(method),
		Amount:        amount,
		Traceable:     true,
		Items:         []rushPayItem{{UnitPrice: amount, Title: title, Quantity: 1, Tangible: false}},
		ExternalID:    req.ExternalID,
		PostbackURL:   req.PostbackURL,
	}
	if body.PostbackURL == "" {
		body.PostbackURL = g.config.PostbackURL
	}

	if method == domain.PaymentMethodCreditCard && req.CardToken != "" {
		installments := req.Installments
		if installments <= 0 {
			installments = 1
		}
		body.CreditCard = &rushPayCreditCard{Token: req.CardToken, Installments: installments}
	}

	addr := req.Optional.Address
	if addr == nil {
		addr = req.Customer.Address
	}
	if addr != nil {
		body.CEP = addr.ZipCode
		body.Complement = addr.Complement
		body.Number = addr.Number
		body.Street = addr.Street
		body.District = addr.District
		body.City = addr.City
		body.State = addr.State
	}
	if utm := req.Optional.UTM; utm != nil {
		body.UTMQuery = utm.Query
		body.CheckoutURL = utm.CheckoutURL
		body.ReferrerURL = utm.ReferrerURL
	}
	return body
}

// CreateTransaction creates a purchase via POST /transaction.purchase
func (g *RushPayGateway) CreateTransaction(ctx context.Context, req *TransactionRequest) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("transaction request is required")
	}
	res, err := g.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if res.DemoMode {
		return g.demo.CreateTransaction(ctx, req)
	}

	var out rushPayTransaction
	_, err = g.transport.do(ctx, call{
		operation: "create_transaction",
		method:    http.MethodPost,
		url:       res.Candidate.BaseURL + "/transaction.purchase",
		headers:   g.headers(res.Credential),
		body:      g.buildPurchase(req),
	}, &out)
	if err != nil {
		return nil, g.afterError(err)
	}

	tx := g.toDomain(&out, req.Method)
	if tx.CustomID == "" {
		tx.CustomID = req.ExternalID
	}
	return &Result{Transaction: tx}, nil
}

// GetStatus reads a transaction via GET /transaction.getPayment
func (g *RushPayGateway) GetStatus(ctx context.Context, transactionID string) (*Result, error) {
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

	var out rushPayTransaction
	_, err = g.transport.do(ctx, call{
		operation: "get_status",
		method:    http.MethodGet,
		url:       res.Candidate.BaseURL + "/transaction.getPayment?id=" + url.QueryEscape(transactionID),
		headers:   g.headers(res.Credential),
	}, &out)
	if err != nil {
		return nil, g.afterError(err)
	}
	if out.ID == "" {
		out.ID = transactionID
	}
	return &Result{Transaction: g.toDomain(&out, "")}, nil
}

// Cancel cancels via DELETE /transactions/{id}
func (g *RushPayGateway) Cancel(ctx context.Context, transactionID string) (*CancelResult, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("transaction ID is required")
	}
	if IsDemoTransaction(transactionID) {
		return g.demo.Cancel(ctx, transactionID)
	}
	res, err := g.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if res.DemoMode {
		return nil, g.unreachable("cancel")
	}

	var out struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		CancelledAt string `json:"cancelled_at"`
	}
	_, err = g.transport.do(ctx, call{
		operation: "cancel",
		method:    http.MethodDelete,
		url:       res.Candidate.BaseURL + "/transactions/" + url.PathEscape(transactionID),
		headers:   g.headers(res.Credential),
	}, &out)
	if err != nil {
		return nil, g.afterError(err)
	}

	status, ok := domain.NormalizeStatus(out.Status)
	if !ok {
		status = domain.TransactionStatusCancelled
	}
	id := out.ID
	if id == "" {
		id = transactionID
	}
	return &CancelResult{ID: id, Status: status, CancelledAt: parseTime(out.CancelledAt)}, nil
}

// CreateCardToken tokenizes a card via POST /transaction.createCardToken
func (g *RushPayGateway) CreateCardToken(ctx context.Context, card *domain.CardData) (string, error) {
	if card == nil {
		return "", fmt.Errorf("card data is required")
	}
	res, err := g.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}
	if res.DemoMode {
		return g.demo.CreateCardToken(ctx, card)
	}

	var out struct {
		Token string `json:"token"`
	}
	_, err = g.transport.do(ctx, call{
		operation: "create_card_token",
		method:    http.MethodPost,
		url:       res.Candidate.BaseURL + "/transaction.createCardToken",
		headers:   g.headers(res.Credential),
		body:      card,
	}, &out)
	if err != nil {
		return "", g.afterError(err)
	}
	if out.Token == "" {
		return "", &Error{Kind: KindTransient, Provider: g.Name(), Operation: "create_card_token", Message: "response carried no token"}
	}
	return out.Token, nil
}

// ListTransactions lists via GET /transactions
func (g *RushPayGateway) ListTransactions(ctx context.Context, filter *ListFilter) (*TransactionPage, error) {
	if filter == nil {
		filter = &ListFilter{}
	}
	res, err := g.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if res.DemoMode {
		return g.demo.ListTransactions(ctx, filter)
	}

	q := url.Values{}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.DateFrom != "" {
		q.Set("date_from", filter.DateFrom)
	}
	if filter.DateTo != "" {
		q.Set("date_to", filter.DateTo)
	}

	raw, err := g.transport.do(ctx, call{
		operation: "list_transactions",
		method:    http.MethodGet,
		url:       res.Candidate.BaseURL + "/transactions?" + q.Encode(),
		headers:   g.headers(res.Credential),
	}, nil)
	if err != nil {
		return nil, g.afterError(err)
	}

	items, total, err := decodeRushPayList(raw)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Provider: g.Name(), Operation: "list_transactions", Message: "unparsable response body", Err: err}
	}
	page := &TransactionPage{Limit: filter.Limit, Offset: filter.Offset, Total: total}
	for i := range items {
		page.Transactions = append(page.Transactions, g.toDomain(&items[i], ""))
	}
	if page.Total == 0 {
		page.Total = len(page.Transactions)
	}
	return page, nil
}

// decodeRushPayList accepts either {data, pagination} or a bare array
func decodeRushPayList(raw []byte) ([]rushPayTransaction, int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []rushPayTransaction
		err := json.Unmarshal(trimmed, &items)
		return items, len(items), err
	}

	var wrapped struct {
		Data       []rushPayTransaction `json:"data"`
		Pagination *struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, 0, err
	}
	total := len(wrapped.Data)
	if wrapped.Pagination != nil && wrapped.Pagination.Total > 0 {
		total = wrapped.Pagination.Total
	}
	return wrapped.Data, total, nil
}

// Probe reports reachability of every configured endpoint
func (g *RushPayGateway) Probe(ctx context.Context) *ProbeReport {
	return probeReport(ctx, g.Name(), g.resolver)
}

// Name returns the gateway name
func (g *RushPayGateway) Name() string {
	return "rushpay"
}

// afterError drops the cached credential when the provider refused it
func (g *RushPayGateway) afterError(err error) error {
	if KindOf(err) == KindAuthInvalid {
		g.resolver.Invalidate()
	}
	return err
}

func (g *RushPayGateway) unreachable(operation string) error {
	return &Error{Kind: KindUnreachable, Provider: g.Name(), Operation: operation, Message: "no endpoint available, running in demo mode"}
}

func (g *RushPayGateway) toDomain(in *rushPayTransaction, fallback domain.PaymentMethod) domain.Transaction {
	status, ok := domain.NormalizeStatus(in.Status)
	if !ok && in.Status != "" {
		logger.Get().Warn("Unknown RushPay status, treating as pending",
			zap.String("transaction_id", in.ID),
			zap.String("status", in.Status),
		)
	}

	method := domain.PaymentMethod(strings.ToUpper(in.Method))
	if !method.Valid() {
		method = fallback
	}
	if method == "" {
		method = domain.PaymentMethodPix
	}

	tx := domain.Transaction{
		ID:          in.ID,
		CustomID:    in.CustomID,
		Status:      status,
		Method:      method,
		AmountMinor: in.Amount.Int64(),
		Currency:    money.Currency,
		ExpiresAt:   parseTime(in.ExpiresAt),
		PaidAt:      parseTime(in.PaidAt),
	}
	if t := parseTime(in.CreatedAt); t != nil {
		tx.CreatedAt = *t
	} else {
		tx.CreatedAt = time.Now().UTC()
	}
	if t := parseTime(in.UpdatedAt); t != nil {
		tx.UpdatedAt = *t
	} else {
		tx.UpdatedAt = tx.CreatedAt
	}

	switch method {
	case domain.PaymentMethodPix:
		tx.Artifact.Pix = &domain.PixArtifact{Code: in.PixCode, QRCode: in.PixQRCode}
	case domain.PaymentMethodBillet:
		tx.Artifact.Billet = &domain.BilletArtifact{URL: in.BilletURL, Code: in.BilletCode}
	case domain.PaymentMethodCreditCard:
		tx.Artifact.Card = &domain.CardArtifact{Installments: in.Installments}
	}
	return tx
}
