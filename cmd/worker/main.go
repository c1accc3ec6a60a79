package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zyfrr/shopstreak/internal/config"
	"github.com/Zyfrr/shopstreak/internal/logging"
	"github.com/Zyfrr/shopstreak/internal/mailer"
	"github.com/Zyfrr/shopstreak/internal/messaging"
	"github.com/Zyfrr/shopstreak/internal/telemetry"
	"github.com/Zyfrr/shopstreak/internal/worker"
)

func main() {
	cfg, err := config.Load("worker")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{Service: cfg.Service, Env: cfg.Env, Level: cfg.LogLevel})

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	if cfg.Services.Email == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Service, "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.WithoutCancel(ctx)) }()

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, cfg.Topics.OrderPayment, "payment-notifier",
		messaging.WithRetry(3, time.Second),
		messaging.WithLogger(logger),
	)
	defer func() { _ = consumer.Close() }()

	mail := mailer.NewClient(cfg.Services.Email, telemetry.NewHTTPClient(cfg.Services.Timeout))
	notificationHandler := worker.NewNotificationHandler(mail, logger)

	logger.Info("starting payment notifier", "brokers", cfg.KafkaBrokers, "topic", cfg.Topics.OrderPayment)

	if err := consumer.Consume(ctx, notificationHandler.Handle); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
