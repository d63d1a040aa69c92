// Package notification carries order notifications to whatever delivers
// them (mailer, SMS). Rendering and transport live outside this service.
package notification

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindOrderConfirmed Kind = "order_confirmed"
	KindPaymentFailed  Kind = "payment_failed"
	KindStatusUpdate   Kind = "status_update"
	// KindPaidAfterCancel tells the customer a payment settled on an order
	// that was already cancelled and needs a refund.
	KindPaidAfterCancel Kind = "paid_after_cancel"
)

type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type Message struct {
	Kind          Kind            `json:"kind"`
	OrderID       string          `json:"orderId"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	Total         decimal.Decimal `json:"total"`
	Items         []Item          `json:"items"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
	Phone         string          `json:"phone"`
	Room          string          `json:"room"`
	Text          string          `json:"text"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

var statusText = map[string]string{
	"preparing": "Your order is now being prepared",
	"ready":     "Your order is ready for pickup",
	"delivered": "Your order has been delivered",
	"cancelled": "Your order has been cancelled",
}

// Text returns the customer facing sentence for a message.
func Text(kind Kind, status string) string {
	switch kind {
	case KindOrderConfirmed:
		return "Thank you for your order! Your payment was received and your order is confirmed."
	case KindPaymentFailed:
		return "Your payment could not be completed. Please try again or choose cash on delivery."
	case KindPaidAfterCancel:
		return "We received your payment, but this order was cancelled. Your payment will be refunded."
	}
	if t, ok := statusText[status]; ok {
		return t
	}
	return "Your order status is now " + status
}
