package api

import (
	"net/http"
	"strconv"
	"time"

	"campus-eats-be/internal/auth"
	"campus-eats-be/internal/order"
	"campus-eats-be/internal/payment"
	"campus-eats-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type adminHandler struct {
	svc  order.Service
	auth *auth.AdminAuthenticator
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type updateStatusRequest struct {
	Status order.OrderStatus `json:"status"`
}

func (h *adminHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		utils.WriteJSONError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	token, expiresAt, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/admin",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	utils.WriteJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *adminHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter order.OrderFilter
	if s := q.Get("status"); s != "" {
		st := order.OrderStatus(s)
		filter.Status = &st
	}
	if s := q.Get("paymentStatus"); s != "" {
		ps := payment.Status(s)
		filter.PaymentStatus = &ps
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			utils.WriteJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	orders, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (h *adminHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	o, err := h.svc.AdvanceStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}
