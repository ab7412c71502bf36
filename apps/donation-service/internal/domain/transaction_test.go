package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw    string
		want   TransactionStatus
		wantOK bool
	}{
		{"pending", TransactionStatusPending, true},
		{"  Aguardando ", TransactionStatusPending, true},
		{"paid", TransactionStatusApproved, true},
		{"APROVADO", TransactionStatusApproved, true},
		{"refused", TransactionStatusRejected, true},
		{"canceled", TransactionStatusCancelled, true},
		{"expirado", TransactionStatusExpired, true},
		{"estornado", TransactionStatusRefunded, true},
		{"MED", TransactionStatusChargeback, true},
		{"CHARGEBACK", TransactionStatusChargeback, true},
		{"something_new", TransactionStatusPending, false},
		{"", TransactionStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeStatus(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeStatus(%q) = (%s, %v), want (%s, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTransactionStatus_IsTerminal(t *testing.T) {
	if TransactionStatusPending.IsTerminal() {
		t.Error("PENDING must not be terminal")
	}
	for _, s := range []TransactionStatus{
		TransactionStatusApproved, TransactionStatusRejected, TransactionStatusCancelled,
		TransactionStatusExpired, TransactionStatusRefunded, TransactionStatusChargeback,
	} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func TestTransaction_TransitionTo(t *testing.T) {
	t.Run("pending to approved", func(t *testing.T) {
		tx := &Transaction{Status: TransactionStatusPending}
		if err := tx.TransitionTo(TransactionStatusApproved); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.Status != TransactionStatusApproved {
			t.Errorf("Status = %s, want APPROVED", tx.Status)
		}
		if tx.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be set")
		}
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		tx := &Transaction{Status: TransactionStatusApproved}
		if err := tx.TransitionTo(TransactionStatusApproved); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("terminal cannot move", func(t *testing.T) {
		tx := &Transaction{Status: TransactionStatusExpired}
		err := tx.TransitionTo(TransactionStatusApproved)
		if !errors.Is(err, ErrTerminalStatus) {
			t.Errorf("expected ErrTerminalStatus, got %v", err)
		}
		if tx.Status != TransactionStatusExpired {
			t.Errorf("Status changed to %s", tx.Status)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		tx := &Transaction{Status: TransactionStatusPending}
		if err := tx.TransitionTo("BOGUS"); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("expected ErrInvalidStatus, got %v", err)
		}
	})
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name    string
		session *Session
		want    bool
	}{
		{"nil session", nil, false},
		{"no expiry", &Session{}, false},
		{"expiry in the past", &Session{ExpiresAt: &past}, true},
		{"expiry now", &Session{ExpiresAt: &now}, true},
		{"expiry in the future", &Session{ExpiresAt: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSession_ApplyStatus(t *testing.T) {
	paid := time.Now().UTC()
	s := &Session{
		State: StateActive,
		Transaction: Transaction{
			ID:          "tx-1",
			Status:      TransactionStatusPending,
			AmountMinor: 5000,
		},
	}

	fresh := &Transaction{ID: "other", Status: TransactionStatusApproved, AmountMinor: 1, PaidAt: &paid}
	if err := s.ApplyStatus(fresh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State != StateSettled {
		t.Errorf("State = %s, want SETTLED", s.State)
	}
	if s.Transaction.ID != "tx-1" || s.Transaction.AmountMinor != 5000 {
		t.Error("identifiers and amount must not change on refresh")
	}
	if s.Transaction.PaidAt == nil {
		t.Error("PaidAt should be copied")
	}

	if err := s.ApplyStatus(&Transaction{Status: TransactionStatusPending}); !errors.Is(err, ErrTerminalStatus) {
		t.Errorf("expected ErrTerminalStatus, got %v", err)
	}
	if s.State != StateSettled {
		t.Errorf("State = %s after rejected transition", s.State)
	}
}

func TestStateFor(t *testing.T) {
	cases := map[TransactionStatus]LifecycleState{
		TransactionStatusPending:    StateActive,
		TransactionStatusApproved:   StateSettled,
		TransactionStatusRejected:   StateFailed,
		TransactionStatusCancelled:  StateCancelled,
		TransactionStatusExpired:    StateExpired,
		TransactionStatusRefunded:   StateCancelled,
		TransactionStatusChargeback: StateFailed,
		"":                          StateNone,
	}
	for status, want := range cases {
		if got := StateFor(status); got != want {
			t.Errorf("StateFor(%q) = %s, want %s", status, got, want)
		}
	}
}
