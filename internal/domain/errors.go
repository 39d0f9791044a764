package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found or has expired.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique key collision.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput covers bad addresses, malformed GTINs and missing fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidOption indicates a fulfillment option id that is not offered on the session.
	ErrInvalidOption = errors.New("invalid fulfillment option")
	// ErrProductUnavailable indicates a stock, buyability or quantity cap violation.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrNotReady indicates a completion attempt on a session that is not ready for payment.
	ErrNotReady = errors.New("not ready for payment")
	// ErrPaymentDeclined indicates the payment collaborator did not report success.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrConflict indicates a write against a stale session version.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState indicates a mutation that the current lifecycle state forbids.
	ErrInvalidState = errors.New("invalid state")
)

// Error pairs an error kind with the human-readable reason shown to callers.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf builds an *Error of the given kind with a formatted reason.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Reason returns the caller-facing message for err.
func Reason(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return err.Error()
}

// Code returns the machine-readable code both protocol surfaces report for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "missing"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidOption):
		return "invalid"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "internal_error"
	}
}
