package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ynachiket/acp-checkout-poc/internal/app"
	"github.com/ynachiket/acp-checkout-poc/internal/config"
	"github.com/ynachiket/acp-checkout-poc/internal/httpserver"
	"github.com/ynachiket/acp-checkout-poc/internal/telemetry"
)

func main() {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, "acp-checkout-api", cfg.OTELEndpoint)
	if err != nil {
		logger.Fatalf("init tracing: %v", err)
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init app: %v", err)
	}
	defer a.Close()

	srv, err := httpserver.New(cfg.HTTPAddr, logger, a.Pool, httpserver.Deps{
		CheckoutSvc:    a.Checkout,
		ProductSvc:     a.Products,
		OrderSvc:       a.Orders,
		MCP:            a.Dispatcher,
		Links:          httpserver.Links{TermsOfService: cfg.TermsURL, PrivacyPolicy: cfg.PrivacyURL},
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Printf("flush traces: %v", err)
	}
}
