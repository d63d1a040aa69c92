package api

import (
	"errors"
	"net/http"

	"campus-eats-be/internal/auth"
	"campus-eats-be/internal/logger"
	"campus-eats-be/internal/order"
	"campus-eats-be/internal/payment"
	"campus-eats-be/internal/utils"

	"go.uber.org/zap"
)

// writeError maps domain errors to HTTP. Provider and internal failures get
// a generic message; the detail only goes to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr    *order.ValidationError
		initErr *payment.PaymentInitiationError
		verErr  *payment.PaymentVerificationError
	)

	switch {
	case errors.As(err, &vErr):
		utils.WriteJSONError(w, vErr.Error(), http.StatusBadRequest)
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteJSONError(w, order.ErrOrderNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrPaymentAlreadyFinal),
		errors.Is(err, order.ErrDuplicateIdempotencyKey):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, auth.ErrInvalidCredentials):
		utils.WriteJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.As(err, &initErr):
		logger.FromCtx(r.Context()).Error("payment initiation error", zap.Error(err))
		utils.WriteJSONError(w, "payment initiation failed: "+initErr.Message, http.StatusInternalServerError)
	case errors.As(err, &verErr),
		errors.Is(err, payment.ErrGatewayMisconfigured),
		errors.Is(err, auth.ErrAdminDisabled):
		logger.FromCtx(r.Context()).Error("dependency unavailable", zap.Error(err))
		utils.WriteJSONError(w, "service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		logger.FromCtx(r.Context()).Error("unhandled error", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
