package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrInvalidPaymentResult    = errors.New("payment result must be paid or failed")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrPaymentAlreadyFinal     = errors.New("payment already completed for order")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func transitionError(from, to OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
