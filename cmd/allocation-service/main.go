package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/stockflow/allocation-service/internal/allocation/application"
	"github.com/stockflow/allocation-service/internal/allocation/infrastructure/consumer"
	allochttp "github.com/stockflow/allocation-service/internal/allocation/infrastructure/http"
	allocpg "github.com/stockflow/allocation-service/internal/allocation/infrastructure/postgres"
	"github.com/stockflow/allocation-service/internal/config"
	"github.com/stockflow/allocation-service/pkg/eventrelay"
	"github.com/stockflow/allocation-service/pkg/idempotency"
	"github.com/stockflow/allocation-service/pkg/logging"
	"github.com/stockflow/allocation-service/pkg/shutdown"
	"github.com/stockflow/allocation-service/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "allocation-service", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("tracing init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := allocpg.EnsureSchema(ctx, pool); err != nil {
		log.Error("schema ensure failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()

	ledger := allocpg.NewLedgerRepository(log, pool)
	events := allocpg.NewEventStore(log, pool)
	svc := application.NewService(log, ledger, events)

	// Fan-out relay: durable domain events -> Kafka.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaAddr),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	defer func() { _ = writer.Close() }()
	dispatch := eventrelay.NewDispatcher(log, writer, cfg.EventTopic)
	relayStore := allocpg.NewRelayStore(log, pool)
	relay := eventrelay.NewRelay(log, relayStore, dispatch,
		"allocation-relay-"+uuid.NewString(), cfg.RelayBatchSize, cfg.RelayInterval, cfg.RelayLease)
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped", "err", err)
		}
	}()

	// Batch consumer over the inbound stream.
	consumerName := cfg.ConsumerName
	if consumerName == "" {
		consumerName = "consumer-" + uuid.NewString()
	}
	marks := idempotency.NewStore(rdb, cfg.ProcessedTTL)
	controller := consumer.NewController(log, svc)
	stream := consumer.NewStreamConsumer(log, rdb, controller, marks, consumer.StreamConfig{
		Stream:    cfg.Stream,
		Group:     cfg.ConsumerGroup,
		Consumer:  consumerName,
		BatchSize: cfg.BatchSize,
		Block:     cfg.BlockTimeout,
		MinIdle:   cfg.ClaimMinIdle,
	})
	go func() {
		if err := stream.Run(ctx); err != nil {
			log.Error("stream consumer stopped", "err", err)
			cancel()
		}
	}()

	// Read-only HTTP surface.
	handler := allochttp.NewHandler(log, svc)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	log.Info("allocation-service shutdown")
}
