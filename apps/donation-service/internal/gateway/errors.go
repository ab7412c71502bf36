package gateway

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned for operations a provider does not offer
var ErrUnsupported = errors.New("operation not supported by provider")

// ErrorKind classifies a gateway failure
type ErrorKind string

const (
	// KindUnreachable means no endpoint candidate could be used
	KindUnreachable ErrorKind = "UNREACHABLE"
	// KindRejected is a 400; Message is the provider's text verbatim
	KindRejected ErrorKind = "REJECTED"
	// KindTransient is a 5xx, timeout or network failure; the caller may retry
	KindTransient ErrorKind = "TRANSIENT"
	// KindAuthInvalid is a 401/403; the endpoint exists but the credential was refused
	KindAuthInvalid ErrorKind = "AUTH_INVALID"
	// KindNotFound is a 404
	KindNotFound ErrorKind = "NOT_FOUND"
)

// Error is a classified provider failure
type Error struct {
	Kind       ErrorKind
	Provider   string
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: %s (%d): %s", e.Provider, e.Operation, e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Operation, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s: %s", e.Provider, e.Operation, e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a gateway error, or "" for anything else
func KindOf(err error) ErrorKind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

// IsTransient reports whether err is worth retrying later
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsRejected reports whether the provider refused the request as invalid
func IsRejected(err error) bool {
	return KindOf(err) == KindRejected
}

// IsNotFound reports whether the provider does not know the resource
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// UserMessage is the flat string surfaced to donors. Rejections keep the
// provider text; everything else gets a generic description.
func UserMessage(err error) string {
	var gerr *Error
	if !errors.As(err, &gerr) {
		if errors.Is(err, ErrUnsupported) {
			return "operation not supported by the payment provider"
		}
		return err.Error()
	}
	switch gerr.Kind {
	case KindRejected:
		if gerr.Message != "" {
			return gerr.Message
		}
		return "payment request rejected"
	case KindTransient:
		return "payment provider temporarily unavailable, please check the status again shortly"
	case KindAuthInvalid:
		return "payment provider refused our credentials"
	case KindNotFound:
		return "transaction not found at the payment provider"
	default:
		return "payment provider unreachable"
	}
}
