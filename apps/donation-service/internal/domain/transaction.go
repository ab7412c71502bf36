package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionStatus is the provider-neutral status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusApproved   TransactionStatus = "APPROVED"
	TransactionStatusRejected   TransactionStatus = "REJECTED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
	TransactionStatusExpired    TransactionStatus = "EXPIRED"
	TransactionStatusRefunded   TransactionStatus = "REFUNDED"
	TransactionStatusChargeback TransactionStatus = "CHARGEBACK"
)

// IsTerminal returns true for every status other than PENDING
func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending && s != ""
}

// Valid reports whether s is a known status
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusApproved, TransactionStatusRejected,
		TransactionStatusCancelled, TransactionStatusExpired, TransactionStatusRefunded,
		TransactionStatusChargeback:
		return true
	}
	return false
}

// providerStatuses maps the vocabularies RushPay and SyncPay answer with
var providerStatuses = map[string]TransactionStatus{
	"pending":         TransactionStatusPending,
	"pendente":        TransactionStatusPending,
	"waiting_payment": TransactionStatusPending,
	"aguardando":      TransactionStatusPending,
	"processing":      TransactionStatusPending,
	"approved":        TransactionStatusApproved,
	"aprovado":        TransactionStatusApproved,
	"paid":            TransactionStatusApproved,
	"pago":            TransactionStatusApproved,
	"completed":       TransactionStatusApproved,
	"concluido":       TransactionStatusApproved,
	"rejected":        TransactionStatusRejected,
	"recusado":        TransactionStatusRejected,
	"refused":         TransactionStatusRejected,
	"failed":          TransactionStatusRejected,
	"cancelled":       TransactionStatusCancelled,
	"canceled":        TransactionStatusCancelled,
	"cancelado":       TransactionStatusCancelled,
	"expired":         TransactionStatusExpired,
	"expirado":        TransactionStatusExpired,
	"refunded":        TransactionStatusRefunded,
	"estornado":       TransactionStatusRefunded,
	"chargeback":      TransactionStatusChargeback,
	"med":             TransactionStatusChargeback,
}

// NormalizeStatus maps a provider status string to a TransactionStatus.
// Unknown values map to PENDING and report ok=false.
func NormalizeStatus(raw string) (TransactionStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := providerStatuses[key]; ok {
		return s, true
	}
	if s := TransactionStatus(strings.ToUpper(key)); s.Valid() {
		return s, true
	}
	return TransactionStatusPending, false
}

// PaymentMethod is how the donor pays
type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "PIX"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodBillet     PaymentMethod = "BILLET"
)

// Valid reports whether m is a supported method
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodPix || m == PaymentMethodCreditCard || m == PaymentMethodBillet
}

// PaymentArtifact is what the donor needs to complete payment. Exactly one
// of the variant pointers is set, matching the transaction method.
type PaymentArtifact struct {
	Pix    *PixArtifact    `json:"pix,omitempty"`
	Billet *BilletArtifact `json:"billet,omitempty"`
	Card   *CardArtifact   `json:"card,omitempty"`
}

type PixArtifact struct {
	Code   string `json:"pixCode"`
	QRCode string `json:"pixQrCode,omitempty"`
}

type BilletArtifact struct {
	URL  string `json:"billetUrl"`
	Code string `json:"billetCode"`
}

type CardArtifact struct {
	Installments int `json:"installments"`
}

// Transaction is the normalized provider transaction
type Transaction struct {
	ID          string            `json:"id"`
	CustomID    string            `json:"customId,omitempty"`
	Status      TransactionStatus `json:"status"`
	Method      PaymentMethod     `json:"method"`
	AmountMinor int64             `json:"amountMinor"`
	Currency    string            `json:"currency"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`
	PaidAt      *time.Time        `json:"paidAt,omitempty"`
	Artifact    PaymentArtifact   `json:"paymentArtifact"`
}

// TransitionTo moves the transaction to next. Re-applying the current
// status is a no-op; leaving a terminal status is rejected.
func (t *Transaction) TransitionTo(next TransactionStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	if t.Status == next {
		return nil
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrTerminalStatus, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	return nil
}
