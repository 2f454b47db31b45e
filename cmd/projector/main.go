package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/product-view/internal/config"
	"github.com/example/product-view/internal/events"
	"github.com/example/product-view/internal/kafka"
	"github.com/example/product-view/internal/logger"
	"github.com/example/product-view/internal/metrics"
	"github.com/example/product-view/internal/projection"
	"github.com/example/product-view/internal/store"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	zlog, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("starting projector",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.ConsumerGroup),
		zap.String("backend", cfg.Store.Backend),
	)

	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	counters := metrics.NewCounters()

	publisher := events.Fanout{events.NewLogPublisher(zlog)}
	if cfg.Kafka.EventsTopic != "" {
		eventsProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		defer eventsProducer.Close()
		publisher = append(publisher, events.NewKafkaPublisher(eventsProducer))
	}

	projector := projection.New(st, publisher, counters, zlog)

	var dlq *kafka.Producer
	if cfg.Kafka.DLQTopic != "" {
		dlq = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DLQTopic)
		defer dlq.Close()
	}

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		Topic:      cfg.Kafka.Topic,
		GroupID:    cfg.Kafka.ConsumerGroup,
		MaxRetries: cfg.Kafka.MaxRetries,
		DLQ:        dlq,
		Logger:     zlog,
	})
	defer consumer.Close()

	go func() {
		if err := consumer.Run(ctx, projector.HandleMessage); err != nil && ctx.Err() == nil {
			zlog.Error("consumer stopped", zap.Error(err))
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}
	cancel()

	processed, failed := counters.Snapshot()
	zlog.Info("final counters",
		zap.Any("processed", processed),
		zap.Any("failed", failed),
	)
}
