// switchd serves the payment switch API: it starts PayPal, Venmo, SEPA and
// local payment switches for merchant apps, resolves the returns and
// tokenizes approved results. Designed for Cloud Run deployment with
// stateless operation: pending requests live on the device, not here.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-switch/internal/adapter"
	"payment-switch/internal/config"
	"payment-switch/internal/gateway"
	"payment-switch/internal/handler"
	"payment-switch/internal/host"
	"payment-switch/internal/localpayment"
	"payment-switch/internal/middleware"
	"payment-switch/internal/model"
	"payment-switch/internal/paypal"
	"payment-switch/internal/sepa"
	"payment-switch/internal/switching"
	"payment-switch/internal/venmo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("merchant_id", cfg.MerchantID),
		slog.String("environment", cfg.Environment),
		slog.String("return_scheme", cfg.Merchant.ReturnScheme),
		slog.Any("methods", cfg.EnabledMethods()),
	)

	gw, err := gateway.NewClient(cfg.GatewayConfig())
	if err != nil {
		return fmt.Errorf("creating gateway client: %w", err)
	}

	// Only enabled methods are registered; the registry is the capability check
	registry := adapter.NewRegistry(buildMethods(cfg, gw, logger)...)

	h := handler.New(registry, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request ID → logging → host → handler
	// Recovery must be outermost to catch panics from logging middleware
	// Host parses the Switch-Host header on switch starts
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		host.Middleware(logger),
	)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// buildMethods creates a Method for every enabled payment method.
func buildMethods(cfg *config.Config, gw gateway.Client, logger *slog.Logger) []adapter.Method {
	launcher := switching.NewLauncher(logger.With(slog.String("component", "launcher")))
	methodLogger := func(kind model.MethodKind) *slog.Logger {
		return logger.With(slog.String("method", string(kind)))
	}

	var methods []adapter.Method
	for _, kind := range cfg.EnabledMethods() {
		mc := cfg.Method(kind)
		switch kind {
		case model.MethodPayPal:
			methods = append(methods, paypal.NewMethod(paypal.NewClient(gw, paypal.Options{
				ReturnScheme:   cfg.ReturnScheme(kind),
				NotifyOnCancel: mc.Notify(),
				Launcher:       launcher,
				Logger:         methodLogger(kind),
			})))
		case model.MethodVenmo:
			v := cfg.Merchant.Methods.Venmo
			methods = append(methods, venmo.NewMethod(venmo.NewClient(gw, venmo.Options{
				ReturnScheme:   cfg.ReturnScheme(kind),
				NotifyOnCancel: mc.Notify(),
				ProfileID:      v.ProfileID,
				MinAppVersion:  v.MinAppVersion,
				FallbackToWeb:  v.FallbackToWeb,
				Launcher:       launcher,
				Logger:         methodLogger(kind),
			})))
		case model.MethodSEPA:
			methods = append(methods, sepa.NewMethod(sepa.NewClient(gw, sepa.Options{
				ReturnScheme:      cfg.ReturnScheme(kind),
				NotifyOnCancel:    mc.Notify(),
				MerchantAccountID: cfg.Merchant.MerchantAccountID,
				Launcher:          launcher,
				Logger:            methodLogger(kind),
			})))
		case model.MethodLocalPayment:
			methods = append(methods, localpayment.NewMethod(localpayment.NewClient(gw, localpayment.Options{
				ReturnScheme:      cfg.ReturnScheme(kind),
				NotifyOnCancel:    mc.Notify(),
				MerchantAccountID: cfg.Merchant.MerchantAccountID,
				Launcher:          launcher,
				Logger:            methodLogger(kind),
			})))
		}
	}
	return methods
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
