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

	_ "github.com/lib/pq"

	"github.com/Zyfrr/shopstreak/internal/addresses"
	"github.com/Zyfrr/shopstreak/internal/cart"
	"github.com/Zyfrr/shopstreak/internal/checkout"
	"github.com/Zyfrr/shopstreak/internal/config"
	"github.com/Zyfrr/shopstreak/internal/logging"
	"github.com/Zyfrr/shopstreak/internal/messaging"
	"github.com/Zyfrr/shopstreak/internal/orders"
	"github.com/Zyfrr/shopstreak/internal/payment"
	"github.com/Zyfrr/shopstreak/internal/postal"
	"github.com/Zyfrr/shopstreak/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()

	cfg, err := config.Load("storefront")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{Service: cfg.Service, Env: cfg.Env, Level: cfg.LogLevel})

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Service, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Service, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if cfg.Services.Cart == "" || cfg.Services.PaymentProvider == "" {
		logger.Error("CART_SERVICE_URL and PAYMENT_PROVIDER_URL are required")
		os.Exit(1)
	}

	addressStore, orderStore, closeDB, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeDB()

	httpClient := telemetry.NewHTTPClient(cfg.Services.Timeout)

	var lookup addresses.PostalLookup
	if cfg.Services.PostalLookup != "" {
		lookup = postal.NewClient(cfg.Services.PostalLookup, httpClient)
	}

	var coordinatorOpts []orders.Option
	if len(cfg.KafkaBrokers) > 0 {
		placed := messaging.NewProducer(cfg.KafkaBrokers, cfg.Topics.OrderPlaced)
		defer func() { _ = placed.Close() }()
		settled := messaging.NewProducer(cfg.KafkaBrokers, cfg.Topics.OrderPayment)
		defer func() { _ = settled.Close() }()
		coordinatorOpts = append(coordinatorOpts, orders.WithPublishers(placed, settled))
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events are not published")
	}

	addressService := addresses.NewService(addressStore, lookup, logger)
	coordinator := orders.NewCoordinator(orderStore, payment.NewClient(cfg.Services.PaymentProvider, httpClient),
		cfg.Pricing, logger, coordinatorOpts...)
	cartClient := cart.NewClient(cfg.Services.Cart, httpClient)
	orchestrator := checkout.NewOrchestrator(checkout.NewSessionStore(cfg.Checkout.SessionTTL),
		cartClient, addressService, coordinator, logger)

	mux := http.NewServeMux()
	addresses.NewHandler(addressService, lookup, logger).Register(mux, telemetry.WithHTTPRoute)
	orders.NewHandler(coordinator, addressService, cartClient, logger).Register(mux, telemetry.WithHTTPRoute)
	checkout.NewHandler(orchestrator, logger).Register(mux, telemetry.WithHTTPRoute)
	mux.Handle("GET /metrics", metricsHandler)

	port := cfg.PortOr("8081")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      telemetry.NewHandler(mux, cfg.Service),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting storefront service", "port", port, "storage", cfg.StorageDriver)
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

func openStores(ctx context.Context, cfg config.Config) (addresses.Store, orders.Store, func(), error) {
	switch cfg.StorageDriver {
	case "memory":
		return addresses.NewMemoryStore(), orders.NewMemoryStore(), func() {}, nil
	case "postgres":
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	db, err := telemetry.OpenDB(ctx, "postgres", cfg.PostgresURL)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() { _ = db.Close() }

	return addresses.NewAddressRepository(db), orders.NewOrderRepository(db), closeDB, nil
}
