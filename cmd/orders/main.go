package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/dcastano/orders-ms/internal/catalog"
	"github.com/dcastano/orders-ms/internal/config"
	"github.com/dcastano/orders-ms/internal/messaging"
	"github.com/dcastano/orders-ms/internal/orders"
	"github.com/dcastano/orders-ms/internal/telemetry"
)

const orderEventsTopic = "orders.order-events"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load("8081")

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL, "orders")
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	kafkaClient := catalog.NewKafkaClient(cfg.KafkaBrokers, logger)
	defer func() { _ = kafkaClient.Close() }()

	go func() {
		if err := kafkaClient.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("catalog reply consumer stopped", "error", err)
			os.Exit(1)
		}
	}()

	var catalogClient catalog.Client = kafkaClient
	if cfg.RedisAddr != "" {
		catalogClient = catalog.NewCachedClient(
			kafkaClient,
			catalog.NewRedisCache(cfg.RedisAddr),
			cfg.SnapshotCacheTTL,
			logger,
		)
		logger.Info("snapshot cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.SnapshotCacheTTL)
	}

	producer := messaging.NewProducer(cfg.KafkaBrokers, orderEventsTopic)
	defer func() { _ = producer.Close() }()

	repo := orders.NewOrderRepository(db)
	service := orders.NewService(repo, catalogClient, producer, logger)
	handler := orders.NewHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", handler.HandleCreate)
	mux.HandleFunc("GET /orders", handler.HandleList)
	mux.HandleFunc("GET /orders/{id}", handler.HandleGet)
	mux.HandleFunc("PATCH /orders/{id}/status", handler.HandleChangeStatus)
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orders service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
