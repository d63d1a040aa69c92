package order

import (
	"time"

	"campus-eats-be/internal/notification"
	"campus-eats-be/internal/payment"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodPhonePe PaymentMethod = "phonepe"
)

type Order struct {
	ID                string          `json:"id"`
	Items             []OrderItem     `json:"items"`
	Total             decimal.Decimal `json:"total"`
	DeliveryDetails   DeliveryDetails `json:"deliveryDetails"`
	CustomerEmail     string          `json:"customerEmail,omitempty"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	Status            OrderStatus     `json:"status"`
	PaymentStatus     payment.Status  `json:"paymentStatus"`
	ProviderPaymentID string          `json:"providerPaymentId,omitempty"`
	IdempotencyKey    string          `json:"-"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	ItemID    string          `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type DeliveryDetails struct {
	Name         string `json:"name"`
	Room         string `json:"room"`
	Phone        string `json:"phone"`
	Instructions string `json:"instructions,omitempty"`
}

type CreateOrderInput struct {
	Items           []OrderItem
	DeliveryDetails DeliveryDetails
	CustomerEmail   string
	PaymentMethod   PaymentMethod
	// ClientTotal is only compared for logging; the stored total is always
	// recomputed from the items.
	ClientTotal    *decimal.Decimal
	IdempotencyKey string
}

type InitiatePaymentInput struct {
	OrderID      string
	Amount       decimal.Decimal
	MobileNumber string
}

type OrderFilter struct {
	Status        *OrderStatus
	PaymentStatus *payment.Status
	Limit         int
}

// Clone returns a deep copy so callers never share item slices with a store.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp
}

func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Notification builds the message handed to the dispatcher after a
// committed transition.
func (o *Order) Notification(kind notification.Kind, at time.Time) notification.Message {
	items := make([]notification.Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, notification.Item{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return notification.Message{
		Kind:          kind,
		OrderID:       o.ID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Total:         o.Total,
		Items:         items,
		CustomerName:  o.DeliveryDetails.Name,
		CustomerEmail: o.CustomerEmail,
		Phone:         o.DeliveryDetails.Phone,
		Room:          o.DeliveryDetails.Room,
		Text:          notification.Text(kind, string(o.Status)),
		OccurredAt:    at,
	}
}
