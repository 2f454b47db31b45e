package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/product-view/internal/domain/product"
)

const correlationHeader = "X-Correlation-Id"

// Handler processes one raw change-event message. A nil return acknowledges
// the message; an error is classified to decide retry versus dead-letter.
type Handler func(ctx context.Context, key, value []byte) error

// deadLetterSink receives messages that are exhausted or unprocessable.
type deadLetterSink interface {
	Publish(ctx context.Context, key string, value []byte, headers ...kafka.Header) error
}

type ConsumerConfig struct {
	Brokers    []string
	Topic      string
	GroupID    string
	MaxRetries int
	DLQ        *Producer // optional; failures are only logged when absent
	Logger     *zap.Logger
}

// Consumer pulls change events one at a time. Ordering per key is preserved
// by partition affinity; retry and dead-letter routing happen here so the
// handler stays a pure projection step.
type Consumer struct {
	reader        *kafka.Reader
	dlq           deadLetterSink
	log           *zap.Logger
	breaker       *gobreaker.CircuitBreaker
	maxRetries    uint64
	retryInterval time.Duration
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	c := &Consumer{
		reader:        reader,
		log:           cfg.Logger,
		breaker:       newBreaker(cfg.Topic),
		maxRetries:    uint64(cfg.MaxRetries),
		retryInterval: 500 * time.Millisecond,
	}
	if cfg.DLQ != nil {
		c.dlq = cfg.DLQ
	}
	return c
}

// newBreaker guards the handler against a down dependency. It trips after a
// run of consecutive retryable failures so subsequent messages fail fast
// instead of each burning the full retry ladder.
func newBreaker(topic string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    topic,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("reading message", zap.Error(err))
			continue
		}
		c.process(ctx, msg, handler)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// process applies the handler with the retry policy: non-retryable failures
// go straight to the dead-letter sink, retryable ones are retried with
// exponential backoff until the cap, then dead-lettered.
func (c *Consumer) process(ctx context.Context, msg kafka.Message, handler Handler) {
	log := c.log.With(
		zap.String("correlation_id", correlationID(msg)),
		zap.String("key", string(msg.Key)),
	)

	operation := func() error {
		err := c.invoke(ctx, msg, handler)
		if err == nil {
			return nil
		}
		derr := product.Classify(err)
		if !derr.Kind.Retryable() {
			return backoff.Permanent(derr)
		}
		return derr
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))
	if err == nil {
		return
	}

	derr := product.Classify(err)
	if derr.Kind == product.KindProcessing {
		log.Error("dead-lettering message after unclassified failure",
			zap.String("error_kind", string(derr.Kind)), zap.Error(derr))
	} else {
		log.Warn("dead-lettering message",
			zap.String("error_kind", string(derr.Kind)), zap.Error(derr))
	}
	c.deadLetter(ctx, msg, derr, log)
}

// invoke runs the handler through the circuit breaker. Only retryable
// failures count against the breaker: an invalid message or a version
// conflict says nothing about dependency health. While the breaker is open
// the handler is not called and the failure is a retryable external one.
func (c *Consumer) invoke(ctx context.Context, msg kafka.Message, handler Handler) error {
	rejected, err := c.breaker.Execute(func() (any, error) {
		herr := handler(ctx, msg.Key, msg.Value)
		if herr == nil {
			return nil, nil
		}
		derr := product.Classify(herr)
		if !derr.Kind.Retryable() {
			return derr, nil
		}
		return nil, derr
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return product.WrapError(product.KindExternalDependency, "circuit breaker open", err)
		}
		return err
	}
	if rejected != nil {
		return rejected.(*product.Error)
	}
	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, derr *product.Error, log *zap.Logger) {
	if c.dlq == nil {
		return
	}
	headers := []kafka.Header{
		{Key: "error-kind", Value: []byte(derr.Kind)},
		{Key: "error-message", Value: []byte(derr.Message)},
	}
	if err := c.dlq.Publish(ctx, string(msg.Key), msg.Value, headers...); err != nil {
		log.Error("publishing to dead-letter topic", zap.Error(err))
	}
}

func correlationID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == correlationHeader && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return uuid.New().String()
}
