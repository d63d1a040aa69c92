package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-eats-be/internal/logger"
	"campus-eats-be/internal/notification"
	"campus-eats-be/internal/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*Order, error)
	AdvanceStatus(ctx context.Context, id string, target OrderStatus) (*Order, error)
	MarkPaymentPending(ctx context.Context, id string) (*Order, error)
	ApplyPaymentResult(ctx context.Context, id string, result payment.Status, providerPaymentID string) (*Order, bool, error)
	InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*payment.InitiateResult, error)
}

type service struct {
	repo        Repository
	paymentGate payment.Gateway
	notifier    notification.Dispatcher
	now         func() time.Time
}

func NewService(repo Repository, payGate payment.Gateway, notifier notification.Dispatcher) Service {
	if notifier == nil {
		notifier = notification.NewLogDispatcher()
	}
	return &service{
		repo:        repo,
		paymentGate: payGate,
		notifier:    notifier,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx)

	if err := validateCreate(input); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, input.IdempotencyKey)
		if err == nil {
			log.Info("order replayed for idempotency key",
				zap.String("order_id", existing.ID))
			return existing, nil
		}
		if !errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
	}

	items := make([]OrderItem, len(input.Items))
	copy(items, input.Items)
	total := ComputeTotal(items)

	if input.ClientTotal != nil && !input.ClientTotal.Equal(total) {
		log.Warn("client total ignored",
			zap.String("client_total", input.ClientTotal.String()),
			zap.String("total", total.String()))
	}

	method := input.PaymentMethod
	if method == "" {
		method = PaymentMethodCOD
	}

	now := s.now()
	o := &Order{
		ID:              uuid.NewString(),
		Items:           items,
		Total:           total,
		DeliveryDetails: trimDelivery(input.DeliveryDetails),
		CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
		PaymentMethod:   method,
		Status:          StatusPending,
		PaymentStatus:   payment.StatusUnpaid,
		IdempotencyKey:  input.IdempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			// Lost a race with a concurrent request carrying the same key.
			return s.repo.GetByIdempotencyKey(ctx, input.IdempotencyKey)
		}
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("total", o.Total.String()),
		zap.Int("items", len(o.Items)))

	return o, nil
}

func (s *service) Get(ctx context.Context, id string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", *filter.Status))
	}
	if filter.PaymentStatus != nil && !filter.PaymentStatus.Valid() {
		return nil, invalid("paymentStatus", fmt.Sprintf("unknown payment status %q", *filter.PaymentStatus))
	}
	return s.repo.List(ctx, filter)
}

func (s *service) AdvanceStatus(ctx context.Context, id string, target OrderStatus) (*Order, error) {
	if !target.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", target))
	}

	o, err := s.repo.Update(ctx, id, func(o *Order) (bool, error) {
		if !CanTransition(o.Status, target) {
			return false, transitionError(o.Status, target)
		}
		o.Status = target
		o.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("order status advanced",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)))

	s.notify(ctx, o, notification.KindStatusUpdate)
	return o, nil
}

func (s *service) MarkPaymentPending(ctx context.Context, id string) (*Order, error) {
	return s.repo.Update(ctx, id, func(o *Order) (bool, error) {
		switch {
		case o.PaymentStatus == payment.StatusPendingVerification:
			return false, nil
		case o.PaymentStatus.IsTerminal():
			return false, fmt.Errorf("%w: payment already %s", ErrInvalidTransition, o.PaymentStatus)
		}
		o.PaymentStatus = payment.StatusPendingVerification
		o.UpdatedAt = s.now()
		return true, nil
	})
}

// ApplyPaymentResult records a terminal payment outcome at most once. The
// returned bool is false when the order already had a terminal payment
// status, in which case the order is returned unchanged.
func (s *service) ApplyPaymentResult(ctx context.Context, id string, result payment.Status, providerPaymentID string) (*Order, bool, error) {
	if !result.IsTerminal() {
		return nil, false, ErrInvalidPaymentResult
	}

	log := logger.FromCtx(ctx).With(zap.String("order_id", id))

	transitioned := false
	o, err := s.repo.Update(ctx, id, func(o *Order) (bool, error) {
		if o.PaymentStatus.IsTerminal() {
			return false, nil
		}

		o.PaymentStatus = result
		if providerPaymentID != "" {
			o.ProviderPaymentID = providerPaymentID
		}
		if result == payment.StatusPaid {
			switch o.Status {
			case StatusPending:
				o.Status = StatusPreparing
			case StatusCancelled:
				log.Warn("payment received for cancelled order")
			}
		}
		o.UpdatedAt = s.now()
		transitioned = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}

	if transitioned {
		log.Info("payment result applied",
			zap.String("payment_status", string(o.PaymentStatus)),
			zap.String("status", string(o.Status)))
	} else {
		log.Info("payment result already applied",
			zap.String("payment_status", string(o.PaymentStatus)))
	}
	return o, transitioned, nil
}

func (s *service) InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*payment.InitiateResult, error) {
	log := logger.FromCtx(ctx)

	if strings.TrimSpace(input.OrderID) == "" {
		return nil, invalid("orderId", "is required")
	}
	if strings.TrimSpace(input.MobileNumber) == "" {
		return nil, invalid("mobileNumber", "is required")
	}
	if !input.Amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	if s.paymentGate == nil {
		return nil, payment.ErrGatewayMisconfigured
	}

	o, err := s.repo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
	}
	if o.PaymentStatus.IsTerminal() {
		return nil, ErrPaymentAlreadyFinal
	}
	if !input.Amount.Equal(o.Total) {
		return nil, invalid("amount", fmt.Sprintf("%s does not match order total %s", input.Amount, o.Total))
	}

	res, err := s.paymentGate.Initiate(ctx, payment.InitiateRequest{
		OrderID:      o.ID,
		Amount:       o.Total,
		MobileNumber: strings.TrimSpace(input.MobileNumber),
	})
	if err != nil {
		log.Error("payment initiation failed",
			zap.String("order_id", o.ID),
			zap.Error(err))
		return nil, err
	}

	if _, err := s.MarkPaymentPending(ctx, o.ID); err != nil {
		// Payment page already exists; the callback will settle the order.
		log.Warn("failed to mark payment pending",
			zap.String("order_id", o.ID),
			zap.Error(err))
	}

	log.Info("payment initiated",
		zap.String("order_id", o.ID),
		zap.String("provider_transaction_id", res.ProviderTransactionID))

	return res, nil
}

// notify runs after the transition is committed. A failed dispatch is only
// logged; the order state stays as committed.
func (s *service) notify(ctx context.Context, o *Order, kind notification.Kind) {
	if err := s.notifier.Dispatch(ctx, o.Notification(kind, s.now())); err != nil {
		logger.FromCtx(ctx).Error("failed to dispatch notification",
			zap.String("order_id", o.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func validateCreate(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return invalid("items", "at least one item is required")
	}
	for i, it := range input.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.ItemID) == "" {
			return invalid(field+".itemId", "is required")
		}
		if strings.TrimSpace(it.Name) == "" {
			return invalid(field+".name", "is required")
		}
		if it.Quantity < 1 {
			return invalid(field+".quantity", "must be at least 1")
		}
		if !it.UnitPrice.IsPositive() {
			return invalid(field+".unitPrice", "must be greater than zero")
		}
		if !it.UnitPrice.Equal(it.UnitPrice.Truncate(2)) {
			return invalid(field+".unitPrice", "must have at most two decimal places")
		}
	}

	d := input.DeliveryDetails
	if strings.TrimSpace(d.Name) == "" {
		return invalid("deliveryDetails.name", "is required")
	}
	if strings.TrimSpace(d.Room) == "" {
		return invalid("deliveryDetails.room", "is required")
	}
	if strings.TrimSpace(d.Phone) == "" {
		return invalid("deliveryDetails.phone", "is required")
	}

	switch input.PaymentMethod {
	case "", PaymentMethodCOD, PaymentMethodPhonePe:
	default:
		return invalid("paymentMethod", fmt.Sprintf("unsupported payment method %q", input.PaymentMethod))
	}
	return nil
}

func trimDelivery(d DeliveryDetails) DeliveryDetails {
	return DeliveryDetails{
		Name:         strings.TrimSpace(d.Name),
		Room:         strings.TrimSpace(d.Room),
		Phone:        strings.TrimSpace(d.Phone),
		Instructions: strings.TrimSpace(d.Instructions),
	}
}
