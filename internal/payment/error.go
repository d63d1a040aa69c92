package payment

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSaltKey       = errors.New("phonepe salt key or salt index is not configured")
	ErrInvalidAmount        = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidSignature     = errors.New("invalid callback signature")
	ErrGatewayMisconfigured = errors.New("phonepe gateway is not configured")
)

// PaymentInitiationError is returned when the provider could not be reached
// or refused to create the payment.
type PaymentInitiationError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentInitiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment initiation failed: %s: %v", e.Message, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("payment initiation failed: %s (%s)", e.Message, e.Code)
	}
	return "payment initiation failed: " + e.Message
}

func (e *PaymentInitiationError) Unwrap() error { return e.Err }

// PaymentVerificationError is always transient from the caller's point of
// view: it never implies that the payment itself failed.
type PaymentVerificationError struct {
	MerchantTransactionID string
	Code                  string
	Message               string
	Err                   error
}

func (e *PaymentVerificationError) Error() string {
	msg := fmt.Sprintf("payment verification failed for %s: %s", e.MerchantTransactionID, e.Message)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PaymentVerificationError) Unwrap() error { return e.Err }
