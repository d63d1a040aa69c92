// internal/payment/payment.go
package payment

import (
	"context"
)

type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	QueryStatus(ctx context.Context, merchantTransactionID string) (*StatusResult, error)
	VerifyCallback(response, xVerify string) error
}
