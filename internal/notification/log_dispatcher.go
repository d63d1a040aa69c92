package notification

import (
	"context"

	"campus-eats-be/internal/logger"

	"go.uber.org/zap"
)

// LogDispatcher writes notifications to the structured log. Used when no
// broker is configured.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, msg Message) error {
	logger.FromCtx(ctx).Info("order notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("order_id", msg.OrderID),
		zap.String("status", msg.Status),
		zap.String("payment_status", msg.PaymentStatus),
		zap.String("customer", msg.CustomerName),
		zap.String("text", msg.Text),
	)
	return nil
}
