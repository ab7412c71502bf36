package domain

import (
	"errors"
	"testing"
)

func TestCustomer_NormalizeAndValidate(t *testing.T) {
	tests := []struct {
		name      string
		customer  Customer
		wantErr   bool
		wantField string
	}{
		{
			name: "formatted fields are accepted after normalize",
			customer: Customer{
				Name:  "  Maria Silva ",
				Email: "Maria@Example.com",
				TaxID: "529.982.247-25",
				Phone: "+55 (11) 98765-4321",
			},
		},
		{
			name:      "missing email",
			customer:  Customer{Name: "Maria", TaxID: "52998224725", Phone: "5511987654321"},
			wantErr:   true,
			wantField: "Email",
		},
		{
			name:      "short tax id",
			customer:  Customer{Name: "Maria", Email: "m@example.com", TaxID: "123", Phone: "5511987654321"},
			wantErr:   true,
			wantField: "TaxID",
		},
		{
			name: "bad zip code",
			customer: Customer{
				Name: "Maria", Email: "m@example.com", TaxID: "52998224725", Phone: "5511987654321",
				Address: &Address{ZipCode: "123"},
			},
			wantErr:   true,
			wantField: "ZipCode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.customer
			c.Normalize()
			err := c.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Reason != ReasonInvalidCustomer {
				t.Errorf("Reason = %s", verr.Reason)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %s, want %s", verr.Field, tt.wantField)
			}
		})
	}
}

func TestCardData_Validate(t *testing.T) {
	card := CardData{
		Number:         "4111111111111111",
		CVV:            "123",
		ExpMonth:       "12",
		ExpYear:        "30",
		HolderName:     "Maria Silva",
		HolderDocument: "52998224725",
	}
	if err := card.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	card.CVV = "12"
	err := card.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonInvalidCard {
		t.Fatalf("expected INVALID_CARD, got %v", err)
	}
}

func TestNewBelowMinimumError(t *testing.T) {
	err := NewBelowMinimumError(500, 2000, "R$ 20,00")
	if err.ShortfallMinor != 1500 {
		t.Errorf("ShortfallMinor = %d, want 1500", err.ShortfallMinor)
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should be true")
	}
	if err.Error() != "amount: minimum donation is R$ 20,00" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestCampaignStats_ComputeProgress(t *testing.T) {
	s := &CampaignStats{RaisedMinor: 2500, GoalMinor: 10000}
	s.ComputeProgress()
	if s.ProgressPercent != 25 {
		t.Errorf("ProgressPercent = %d, want 25", s.ProgressPercent)
	}

	s = &CampaignStats{RaisedMinor: 20000, GoalMinor: 10000}
	s.ComputeProgress()
	if s.ProgressPercent != 100 {
		t.Errorf("ProgressPercent = %d, want 100", s.ProgressPercent)
	}
}
