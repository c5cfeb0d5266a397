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
	"github.com/segmentio/kafka-go"

	"github.com/dcastano/orders-ms/internal/catalog"
	"github.com/dcastano/orders-ms/internal/config"
	"github.com/dcastano/orders-ms/internal/messaging"
	"github.com/dcastano/orders-ms/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load("8082")

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "catalog", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL, "catalog")
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	repo := catalog.NewProductRepository(db)

	replyProducer := messaging.NewProducer(cfg.KafkaBrokers, catalog.ReplyTopic,
		messaging.WithBatchTimeout(10*time.Millisecond),
		messaging.WithRequiredAcks(kafka.RequireOne),
	)
	defer func() { _ = replyProducer.Close() }()

	responder := catalog.NewResponder(repo, replyProducer, logger)

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, catalog.RequestTopic, "catalog-service")
	defer func() { _ = consumer.Close() }()

	go func() {
		logger.Info("starting validate request consumer", "topic", catalog.RequestTopic)
		if err := consumer.Consume(ctx, responder.Handle); err != nil && ctx.Err() == nil {
			logger.Error("consumer error", "error", err)
			os.Exit(1)
		}
	}()

	handler := catalog.NewHandler(repo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", handler.HandleListProducts)
	mux.HandleFunc("GET /products/{id}", handler.HandleGetProduct)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting catalog service", "port", cfg.Port)
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
