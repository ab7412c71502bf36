package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrInvalidStatus    = errors.New("invalid transaction status")
	ErrTerminalStatus   = errors.New("transaction already in a terminal status")
	ErrInvalidAmount    = errors.New("invalid donation amount")
	ErrInvalidMethod    = errors.New("invalid payment method")
	ErrSessionNotFound  = errors.New("no current donation")
	ErrDonationNotFound = errors.New("donation not found")
	ErrDonationExists   = errors.New("donation already recorded for this external id")
	ErrUnknownAddon     = errors.New("unknown addon")
)

// ValidationReason classifies a ValidationError
type ValidationReason string

const (
	ReasonBelowMinimum    ValidationReason = "BELOW_MINIMUM"
	ReasonInvalidCustomer ValidationReason = "INVALID_CUSTOMER"
	ReasonInvalidCard     ValidationReason = "INVALID_CARD"
	ReasonInvalidRequest  ValidationReason = "INVALID_REQUEST"
)

// ValidationError is raised before any gateway call is made
type ValidationError struct {
	Reason  ValidationReason
	Field   string
	Message string
	// ShortfallMinor is how much is missing to reach the minimum (BELOW_MINIMUM only)
	ShortfallMinor int64
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewBelowMinimumError builds the BELOW_MINIMUM validation error
func NewBelowMinimumError(totalMinor, minimumMinor int64, formatted string) *ValidationError {
	return &ValidationError{
		Reason:         ReasonBelowMinimum,
		Field:          "amount",
		Message:        fmt.Sprintf("minimum donation is %s", formatted),
		ShortfallMinor: minimumMinor - totalMinor,
	}
}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
