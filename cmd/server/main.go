package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-eats-be/internal/api"
	"campus-eats-be/internal/auth"
	"campus-eats-be/internal/config"
	"campus-eats-be/internal/db"
	"campus-eats-be/internal/logger"
	"campus-eats-be/internal/metrics"
	"campus-eats-be/internal/middleware"
	"campus-eats-be/internal/notification"
	"campus-eats-be/internal/order"
	"campus-eats-be/internal/payment"
	"campus-eats-be/internal/payment/webhook"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	var database *sql.DB
	if cfg.UsePostgres() {
		database = db.InitDB(cfg)
		defer database.Close()
	} else {
		log.Warn("DB_HOST not set, orders are kept in memory")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, cleanup, err := newServer(cfg, database, reg)
	if err != nil {
		log.Fatal("failed to build server", zap.Error(err))
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newServer wires the application. A nil database selects the in-memory
// stores. The returned cleanup closes the notification dispatcher.
func newServer(cfg *config.Config, database *sql.DB, reg *prometheus.Registry) (http.Handler, func(), error) {
	gateway, err := payment.NewPhonePeGateway(payment.PhonePeConfig{
		BaseURL:     cfg.PhonePeBaseURL,
		MerchantID:  cfg.PhonePeMerchantID,
		SaltKey:     cfg.PhonePeSaltKey,
		SaltIndex:   cfg.PhonePeSaltIndex,
		CallbackURL: cfg.PhonePeCallbackURL(),
		RedirectURL: cfg.PhonePeRedirectURL(),
		Timeout:     cfg.PhonePeTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("phonepe gateway: %w", err)
	}

	var (
		orderRepo order.Repository
		callbacks payment.CallbackLog
		ping      func(ctx context.Context) error
	)
	if database != nil {
		orderRepo = order.NewRepository(database)
		callbacks = payment.NewRepository(database)
		ping = database.PingContext
	} else {
		orderRepo = order.NewMemoryRepository()
		callbacks = payment.NewMemoryCallbackLog()
	}

	dispatcher, closeDispatcher, err := newDispatcher(cfg)
	if err != nil {
		return nil, nil, err
	}

	m := metrics.New(reg)
	orderSvc := order.NewService(orderRepo, gateway, dispatcher)
	reconciler := webhook.NewReconciler(orderSvc, gateway, callbacks, dispatcher, m)

	handler := api.NewRouter(api.Deps{
		Orders:     orderSvc,
		Webhook:    webhook.NewHandler(reconciler, gateway),
		Admin:      auth.NewAdminAuthenticator(cfg.AdminUsername, cfg.AdminPasswordHash, cfg.JWTSecret),
		Limiter:    middleware.NewRateLimiter(),
		Metrics:    m,
		Gatherer:   reg,
		CORSOrigin: cfg.CORSOrigin,
		Ping:       ping,
	})

	return handler, closeDispatcher, nil
}

// newDispatcher publishes to Kafka when brokers are configured and logs
// notifications otherwise.
func newDispatcher(cfg *config.Config) (notification.Dispatcher, func(), error) {
	if len(notification.ParseBrokers(cfg.KafkaBrokers)) == 0 {
		return notification.NewLogDispatcher(), func() {}, nil
	}

	d, err := notification.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.NotifyTopic)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka dispatcher: %w", err)
	}
	return d, func() {
		if err := d.Close(); err != nil {
			logger.L().Error("failed to close kafka writer", zap.Error(err))
		}
	}, nil
}
