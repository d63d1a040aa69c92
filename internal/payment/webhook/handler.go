package webhook

import (
	"encoding/json"
	"errors"
	"net/http"

	"campus-eats-be/internal/logger"
	"campus-eats-be/internal/order"
	"campus-eats-be/internal/payment"
	"campus-eats-be/internal/utils"

	"go.uber.org/zap"
)

const HeaderXVerify = "X-VERIFY"

// callbackRequest accepts both PhonePe's S2S form ({"response": base64}) and
// a bare {"merchantTransactionId": ...}. Any other fields are ignored.
type callbackRequest struct {
	Response              string `json:"response"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
}

type Handler struct {
	Reconciler *Reconciler
	Gateway    payment.Gateway
}

func NewHandler(reconciler *Reconciler, gateway payment.Gateway) *Handler {
	return &Handler{
		Reconciler: reconciler,
		Gateway:    gateway,
	}
}

// CallbackHandler serves the provider's asynchronous payment notification.
func (h *Handler) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	body, err := utils.ReadBody(r)
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req callbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	n := Notification{
		MerchantTransactionID: req.MerchantTransactionID,
		Source:                SourceCallback,
		Payload:               body,
	}

	if req.Response != "" {
		if xVerify := r.Header.Get(HeaderXVerify); xVerify != "" {
			if err := h.Gateway.VerifyCallback(req.Response, xVerify); err != nil {
				log.Warn("callback signature rejected", zap.Error(err))
				utils.WriteJSONError(w, "invalid signature", http.StatusUnauthorized)
				return
			}
			n.SignatureValid = true
		}

		txnID, err := payment.CallbackBody{Response: req.Response}.MerchantTransactionID()
		if err != nil {
			utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		n.MerchantTransactionID = txnID
	}

	h.reconcile(w, r, n)
}

// VerifyHandler serves the client's status poll after the payment page
// redirects back.
func (h *Handler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	txnID := req.MerchantTransactionID
	if txnID == "" {
		txnID = req.TransactionID
	}

	h.reconcile(w, r, Notification{
		MerchantTransactionID: txnID,
		Source:                SourcePoll,
	})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request, n Notification) {
	out, err := h.Reconciler.Reconcile(r.Context(), n)
	if err != nil {
		code, msg := errorStatus(err)
		if code >= http.StatusInternalServerError {
			logger.FromCtx(r.Context()).Error("reconciliation failed",
				zap.String("merchant_transaction_id", n.MerchantTransactionID),
				zap.Error(err))
		}
		utils.WriteJSONError(w, msg, code)
		return
	}

	utils.WriteJSON(w, http.StatusOK, out)
}

// errorStatus maps reconciliation errors to HTTP. Provider errors are 503 so
// the sender retries delivery.
func errorStatus(err error) (int, string) {
	var verifyErr *payment.PaymentVerificationError

	switch {
	case errors.Is(err, ErrMissingIdentifier):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ErrAmountMismatch):
		return http.StatusConflict, ErrAmountMismatch.Error()
	case errors.As(err, &verifyErr), errors.Is(err, payment.ErrGatewayMisconfigured):
		return http.StatusServiceUnavailable, "payment provider unavailable, retry later"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
