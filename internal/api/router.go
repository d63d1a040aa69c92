package api

import (
	"context"
	"net/http"
	"time"

	"campus-eats-be/internal/auth"
	"campus-eats-be/internal/logger"
	"campus-eats-be/internal/metrics"
	"campus-eats-be/internal/middleware"
	"campus-eats-be/internal/order"
	"campus-eats-be/internal/payment/webhook"
	"campus-eats-be/internal/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Deps struct {
	Orders     order.Service
	Webhook    *webhook.Handler
	Admin      *auth.AdminAuthenticator
	Limiter    *middleware.RateLimiter
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	CORSOrigin string
	// Ping reports storage health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	if d.Limiter == nil {
		d.Limiter = middleware.NewRateLimiter()
	}

	orders := &orderHandler{svc: d.Orders}
	payments := &paymentHandler{svc: d.Orders, metrics: d.Metrics}
	admin := &adminHandler{svc: d.Orders, auth: d.Admin}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(d.Metrics.Middleware)
	r.Use(middleware.CORS(d.CORSOrigin))

	r.Get("/healthz", healthHandler(d.Ping))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(d.Limiter.Middleware)

		r.Post("/orders", orders.create)
		r.Get("/orders/{id}", orders.get)
		r.Get("/orders/{id}/status", orders.status)

		r.Post("/payments/initiate", payments.initiate)
		r.Post("/payments/callback", d.Webhook.CallbackHandler)
		r.Post("/payments/verify", d.Webhook.VerifyHandler)

		r.Post("/admin/login", admin.login)
	})

	r.Route("/admin/orders", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(d.Admin))
		r.Use(d.Limiter.Middleware)

		r.Get("/", admin.list)
		r.Patch("/{id}/status", admin.updateStatus)
	})

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
