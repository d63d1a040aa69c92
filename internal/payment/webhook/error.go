package webhook

import "errors"

var (
	ErrMissingIdentifier = errors.New("merchant transaction id is required")
	ErrAmountMismatch    = errors.New("paid amount does not match order total")
)
