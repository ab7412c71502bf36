package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Customer identifies the donor towards the provider
type Customer struct {
	Name    string   `json:"name" validate:"required,min=3"`
	Email   string   `json:"email" validate:"required,email"`
	TaxID   string   `json:"taxId" validate:"required,len=11,numeric"`
	Phone   string   `json:"phone" validate:"required,min=8,max=13,numeric"`
	Address *Address `json:"address,omitempty" validate:"omitempty"`
}

// Address is the optional postal address
type Address struct {
	ZipCode    string `json:"zipCode" validate:"omitempty,numeric,len=8"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state" validate:"omitempty,len=2"`
}

// UTM carries campaign attribution forwarded to the provider
type UTM struct {
	Query       string `json:"utmQuery,omitempty"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	ReferrerURL string `json:"referrerUrl,omitempty"`
}

// OptionalFields groups the request fields a provider accepts but does not require
type OptionalFields struct {
	Address *Address
	UTM     *UTM
}

// CardData is the raw card input exchanged for a single-use token
type CardData struct {
	Number         string `json:"cardNumber" validate:"required,min=13,max=19,numeric"`
	CVV            string `json:"cardCvv" validate:"required,min=3,max=4,numeric"`
	ExpMonth       string `json:"cardExpirationMonth" validate:"required,len=2,numeric"`
	ExpYear        string `json:"cardExpirationYear" validate:"required,len=2,numeric"`
	HolderName     string `json:"holderName" validate:"required,min=3"`
	HolderDocument string `json:"holderDocument" validate:"required,len=11,numeric"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DigitsOnly strips every non-digit rune
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize trims the name and strips formatting from tax id and phone
func (c *Customer) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	c.TaxID = DigitsOnly(c.TaxID)
	c.Phone = DigitsOnly(c.Phone)
	if c.Address != nil {
		c.Address.ZipCode = DigitsOnly(c.Address.ZipCode)
	}
}

// Validate checks the customer fields
func (c *Customer) Validate() error {
	return toValidationError(getValidator().Struct(c), ReasonInvalidCustomer)
}

// Validate checks the card fields
func (d *CardData) Validate() error {
	return toValidationError(getValidator().Struct(d), ReasonInvalidCard)
}

func toValidationError(err error, reason ValidationReason) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Reason:  reason,
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q validation", fe.Tag()),
		}
	}
	return &ValidationError{Reason: reason, Message: err.Error()}
}
