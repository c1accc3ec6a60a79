package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zyfrr/shopstreak/internal/config"
	"github.com/Zyfrr/shopstreak/internal/logging"
	"github.com/Zyfrr/shopstreak/internal/paymentgw"
	"github.com/Zyfrr/shopstreak/internal/telemetry"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load("paymentgw")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{Service: cfg.Service, Env: cfg.Env, Level: cfg.LogLevel})

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Service, "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	handler := paymentgw.NewHandler(paymentgw.Options{
		DeclineAbove: cfg.Gateway.DeclineAbove,
		MinLatency:   cfg.Gateway.MinLatency,
		MaxLatency:   cfg.Gateway.MaxLatency,
	}, logger)

	mux := http.NewServeMux()
	handler.Register(mux, telemetry.WithHTTPRoute)

	port := cfg.PortOr("8083")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      telemetry.NewHandler(mux, cfg.Service),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting payment gateway", "port", port, "decline_above", cfg.Gateway.DeclineAbove)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
