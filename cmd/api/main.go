package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shopora/internal/config"
	"shopora/internal/db"
	"shopora/internal/events"
	"shopora/internal/httpserver"
	"shopora/internal/logger"
	"shopora/internal/notify"
	"shopora/internal/paypal"
	"shopora/internal/pricing"
	notificationrepo "shopora/internal/repository/notification"
	orderrepo "shopora/internal/repository/order"
	productrepo "shopora/internal/repository/product"
	notificationsvc "shopora/internal/service/notification"
	ordersvc "shopora/internal/service/order"
)

func main() {
	cfg := config.FromEnv()
	logger.Init(cfg.Development)
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Error("connect to db", "err", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool)
	notificationRepo := notificationrepo.NewPostgres(dbpool)

	hub := notify.NewHub()
	notificationService := notificationsvc.New(notificationRepo, hub)

	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.Connect(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			// The event feed is optional; the API still serves without it.
			logger.Warn("connect to broker failed, events disabled", "err", err)
		} else {
			defer publisher.Close()
		}
	}

	gateway := paypal.New(cfg.PayPalAPI, cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.GatewayTimeout)
	pricer := pricing.New(productRepo)
	orderService := ordersvc.New(orderRepo, pricer, gateway, notificationService, publisher)

	srv := httpserver.New(cfg.HTTPAddr, dbpool, httpserver.Deps{
		Orders:         orderService,
		Notifications:  notificationService,
		Hub:            hub,
		JWTSecret:      cfg.JWTSecret,
		PayPalClientID: cfg.PayPalClientID,
		Development:    cfg.Development,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	} else {
		logger.Info("server stopped")
	}
}
