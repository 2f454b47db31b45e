// Package events publishes domain events to observability consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/product-view/internal/domain/product"
	"github.com/example/product-view/internal/kafka"
)

// Publisher delivers domain events. Delivery is fire-and-forget: the
// projection logs publish failures but does not fail the event.
type Publisher interface {
	Publish(ctx context.Context, event product.Event) error
}

// LogPublisher writes each domain event to the structured log. It is the
// default observability consumer.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event product.Event) error {
	p.log.Info("domain event",
		zap.String("event", event.EventName()),
		zap.String("product_id", event.ProductKey()),
	)
	return nil
}

// KafkaPublisher forwards domain events to a Kafka topic, keyed by product id
// so consumers see per-product ordering.
type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

type eventEnvelope struct {
	EventType  string        `json:"eventType"`
	OccurredAt time.Time     `json:"occurredAt"`
	Data       product.Event `json:"data"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, event product.Event) error {
	body, err := json.Marshal(eventEnvelope{
		EventType:  event.EventName(),
		OccurredAt: time.Now().UTC(),
		Data:       event,
	})
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, event.ProductKey(), body)
}

// Fanout publishes to every wrapped publisher and joins their failures.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event product.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
