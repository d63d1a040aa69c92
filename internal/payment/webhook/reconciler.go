package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-eats-be/internal/logger"
	"campus-eats-be/internal/metrics"
	"campus-eats-be/internal/notification"
	"campus-eats-be/internal/order"
	"campus-eats-be/internal/payment"

	"go.uber.org/zap"
)

const (
	SourceCallback = "callback"
	SourcePoll     = "poll"
)

// Notification is an inbound payment event. Only MerchantTransactionID is
// used for lookup; Payload is kept for the audit log.
type Notification struct {
	MerchantTransactionID string
	Source                string
	Payload               json.RawMessage
	SignatureValid        bool
}

type OrderSummary struct {
	ID            string            `json:"id"`
	Status        order.OrderStatus `json:"status"`
	PaymentStatus payment.Status    `json:"paymentStatus"`
}

type Outcome struct {
	Success   bool         `json:"success"`
	Duplicate bool         `json:"duplicate,omitempty"`
	Order     OrderSummary `json:"order"`
}

type Reconciler struct {
	orders    order.Service
	gateway   payment.Gateway
	callbacks payment.CallbackLog
	notifier  notification.Dispatcher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewReconciler(
	orders order.Service,
	gateway payment.Gateway,
	callbacks payment.CallbackLog,
	notifier notification.Dispatcher,
	m *metrics.Metrics,
) *Reconciler {
	if notifier == nil {
		notifier = notification.NewLogDispatcher()
	}
	return &Reconciler{
		orders:    orders,
		gateway:   gateway,
		callbacks: callbacks,
		notifier:  notifier,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile re-verifies the payment with the provider and applies the
// verified result to the order at most once. Provider errors are returned
// as *payment.PaymentVerificationError and leave the order untouched so the
// sender can redeliver.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (*Outcome, error) {
	txnID := strings.TrimSpace(n.MerchantTransactionID)
	source := n.Source
	if source == "" {
		source = SourceCallback
	}
	ctx = logger.WithFields(ctx,
		zap.String("merchant_transaction_id", txnID),
		zap.String("source", source),
	)
	log := logger.FromCtx(ctx)

	callbackID := r.record(ctx, log, source, txnID, n)

	out, result, err := r.reconcile(ctx, log, txnID)
	if err != nil {
		r.metrics.ObserveReconciliation(source, "error")
		r.markFailed(ctx, log, callbackID, err)
		return nil, err
	}

	r.metrics.ObserveReconciliation(source, result)
	r.markProcessed(ctx, log, callbackID, result)
	return out, nil
}

func (r *Reconciler) reconcile(ctx context.Context, log *zap.Logger, txnID string) (*Outcome, string, error) {
	if txnID == "" {
		return nil, "", ErrMissingIdentifier
	}

	o, err := r.orders.Get(ctx, txnID)
	if err != nil {
		log.Warn("reconcile lookup failed", zap.Error(err))
		return nil, "", err
	}
	if o.PaymentStatus.IsTerminal() {
		log.Info("payment already settled, skipping provider query",
			zap.String("payment_status", string(o.PaymentStatus)))
		return outcome(o, true), "duplicate", nil
	}

	res, err := r.gateway.QueryStatus(ctx, txnID)
	if err != nil {
		log.Error("payment status query failed", zap.Error(err))
		return nil, "", err
	}

	switch res.Status {
	case payment.StatusPendingVerification:
		o, err = r.orders.MarkPaymentPending(ctx, txnID)
		if errors.Is(err, order.ErrInvalidTransition) {
			// Settled by a concurrent reconciliation.
			o, err = r.orders.Get(ctx, txnID)
			if err != nil {
				return nil, "", err
			}
			return outcome(o, true), "duplicate", nil
		}
		if err != nil {
			return nil, "", err
		}
		log.Info("payment still pending", zap.String("code", res.Code))
		return outcome(o, false), string(payment.StatusPendingVerification), nil

	case payment.StatusPaid:
		if !res.Amount.IsZero() && !res.Amount.Equal(o.Total) {
			log.Error("paid amount differs from order total",
				zap.String("amount", res.Amount.String()),
				zap.String("total", o.Total.String()))
			return nil, "", fmt.Errorf("%w: paid %s, total %s", ErrAmountMismatch, res.Amount, o.Total)
		}
	case payment.StatusFailed:
	default:
		return nil, "", &payment.PaymentVerificationError{
			MerchantTransactionID: txnID,
			Code:                  res.Code,
			Message:               "unrecognised payment status " + string(res.Status),
		}
	}

	o, transitioned, err := r.orders.ApplyPaymentResult(ctx, txnID, res.Status, res.ProviderPaymentID)
	if err != nil {
		log.Error("failed to apply payment result", zap.Error(err))
		return nil, "", err
	}
	if !transitioned {
		return outcome(o, true), "duplicate", nil
	}

	kind := notification.KindOrderConfirmed
	switch {
	case res.Status == payment.StatusFailed:
		kind = notification.KindPaymentFailed
	case o.Status == order.StatusCancelled:
		kind = notification.KindPaidAfterCancel
	}
	r.notify(ctx, log, o, kind)

	return outcome(o, false), string(res.Status), nil
}

func (r *Reconciler) notify(ctx context.Context, log *zap.Logger, o *order.Order, kind notification.Kind) {
	if err := r.notifier.Dispatch(ctx, o.Notification(kind, r.now())); err != nil {
		r.metrics.ObserveNotification(string(kind), "error")
		log.Error("failed to dispatch notification",
			zap.String("kind", string(kind)),
			zap.Error(err))
		return
	}
	r.metrics.ObserveNotification(string(kind), "ok")
}

func (r *Reconciler) record(ctx context.Context, log *zap.Logger, source, txnID string, n Notification) int64 {
	if r.callbacks == nil {
		return 0
	}
	id, err := r.callbacks.SaveCallback(ctx, payment.ProviderPhonePe, source, txnID, n.Payload, n.SignatureValid)
	if err != nil {
		log.Warn("failed to record callback", zap.Error(err))
		return 0
	}
	return id
}

func (r *Reconciler) markProcessed(ctx context.Context, log *zap.Logger, id int64, result string) {
	if r.callbacks == nil || id == 0 {
		return
	}
	if err := r.callbacks.MarkCallbackProcessed(ctx, id, result); err != nil {
		log.Warn("failed to mark callback processed", zap.Int64("callback_id", id), zap.Error(err))
	}
}

func (r *Reconciler) markFailed(ctx context.Context, log *zap.Logger, id int64, cause error) {
	if r.callbacks == nil || id == 0 {
		return
	}
	if err := r.callbacks.MarkCallbackFailed(ctx, id, cause.Error()); err != nil {
		log.Warn("failed to mark callback failed", zap.Int64("callback_id", id), zap.Error(err))
	}
}

func outcome(o *order.Order, duplicate bool) *Outcome {
	return &Outcome{
		Success:   o.PaymentStatus == payment.StatusPaid,
		Duplicate: duplicate,
		Order: OrderSummary{
			ID:            o.ID,
			Status:        o.Status,
			PaymentStatus: o.PaymentStatus,
		},
	}
}
