package api

import (
	"net/http"

	"campus-eats-be/internal/metrics"
	"campus-eats-be/internal/order"
	"campus-eats-be/internal/utils"

	"github.com/shopspring/decimal"
)

type paymentHandler struct {
	svc     order.Service
	metrics *metrics.Metrics
}

type initiatePaymentRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	MobileNumber string          `json:"mobileNumber"`
	OrderID      string          `json:"orderId"`
}

type initiatePaymentResponse struct {
	Success       bool   `json:"success"`
	RedirectURL   string `json:"redirectUrl"`
	TransactionID string `json:"transactionId"`
}

func (h *paymentHandler) initiate(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.InitiatePayment(r.Context(), order.InitiatePaymentInput{
		OrderID:      req.OrderID,
		Amount:       req.Amount,
		MobileNumber: req.MobileNumber,
	})
	if err != nil {
		h.metrics.ObserveInitiation("error")
		writeError(w, r, err)
		return
	}

	h.metrics.ObserveInitiation("ok")
	utils.WriteJSON(w, http.StatusOK, initiatePaymentResponse{
		Success:       true,
		RedirectURL:   res.RedirectURL,
		TransactionID: res.ProviderTransactionID,
	})
}
