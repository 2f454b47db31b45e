package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/product-view/internal/domain/product"
)

type capturedMessage struct {
	key     string
	value   []byte
	headers []kafka.Header
}

type fakeDLQ struct {
	messages []capturedMessage
}

func (f *fakeDLQ) Publish(_ context.Context, key string, value []byte, headers ...kafka.Header) error {
	f.messages = append(f.messages, capturedMessage{key: key, value: value, headers: headers})
	return nil
}

func newTestConsumer(dlq *fakeDLQ, maxRetries uint64) *Consumer {
	return &Consumer{
		dlq:           dlq,
		log:           zap.NewNop(),
		breaker:       newBreaker("test"),
		maxRetries:    maxRetries,
		retryInterval: time.Millisecond,
	}
}

// twitchyBreaker opens after a single failure and stays open.
func twitchyBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "test",
		Timeout: time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})
}

func testMessage() kafka.Message {
	return kafka.Message{Key: []byte("p1"), Value: []byte(`{"productId":"p1"}`)}
}

func TestProcess_Success_NoDLQ(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(dlq, 3)

	calls := 0
	c.process(context.Background(), testMessage(), func(context.Context, []byte, []byte) error {
		calls++
		return nil
	})

	assert.Equal(t, 1, calls)
	assert.Empty(t, dlq.messages)
}

func TestProcess_NonRetryable_DeadLettersImmediately(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(dlq, 3)

	calls := 0
	c.process(context.Background(), testMessage(), func(context.Context, []byte, []byte) error {
		calls++
		return product.NewError(product.KindConflict, "already exists")
	})

	assert.Equal(t, 1, calls, "non-retryable failures are not retried")
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "p1", dlq.messages[0].key)

	kinds := map[string]string{}
	for _, h := range dlq.messages[0].headers {
		kinds[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(product.KindConflict), kinds["error-kind"])
	assert.Equal(t, "already exists", kinds["error-message"])
}

func TestProcess_Retryable_RetriesThenDeadLetters(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(dlq, 2)

	calls := 0
	c.process(context.Background(), testMessage(), func(context.Context, []byte, []byte) error {
		calls++
		return product.NewError(product.KindExternalDependency, "store unreachable")
	})

	assert.Equal(t, 3, calls, "initial attempt plus two retries")
	require.Len(t, dlq.messages, 1)
}

func TestProcess_Retryable_EventualSuccess(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(dlq, 5)

	calls := 0
	c.process(context.Background(), testMessage(), func(context.Context, []byte, []byte) error {
		calls++
		if calls < 3 {
			return product.NewError(product.KindPersistence, "transient store failure")
		}
		return nil
	})

	assert.Equal(t, 3, calls)
	assert.Empty(t, dlq.messages)
}

func TestProcess_UnclassifiedError_TreatedAsRetryable(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(dlq, 1)

	calls := 0
	c.process(context.Background(), testMessage(), func(context.Context, []byte, []byte) error {
		calls++
		return errors.New("wat")
	})

	assert.Equal(t, 2, calls)
	require.Len(t, dlq.messages, 1)

	kinds := map[string]string{}
	for _, h := range dlq.messages[0].headers {
		kinds[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(product.KindProcessing), kinds["error-kind"])
}

func TestProcess_OpenBreakerShortCircuits(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(dlq, 0)
	c.breaker = twitchyBreaker()

	calls := 0
	failing := func(context.Context, []byte, []byte) error {
		calls++
		return product.NewError(product.KindExternalDependency, "store unreachable")
	}

	c.process(context.Background(), testMessage(), failing)
	require.Equal(t, 1, calls)
	require.Len(t, dlq.messages, 1)

	// The breaker is now open: the next message dead-letters without the
	// handler ever running.
	c.process(context.Background(), testMessage(), failing)
	assert.Equal(t, 1, calls, "handler must not run while the breaker is open")
	require.Len(t, dlq.messages, 2)

	kinds := map[string]string{}
	for _, h := range dlq.messages[1].headers {
		kinds[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(product.KindExternalDependency), kinds["error-kind"])
	assert.Equal(t, "circuit breaker open", kinds["error-message"])
}

func TestProcess_BusinessFailuresDoNotTrip(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(dlq, 0)
	c.breaker = twitchyBreaker()

	c.process(context.Background(), testMessage(), func(context.Context, []byte, []byte) error {
		return product.NewError(product.KindConflict, "stale version")
	})
	require.Len(t, dlq.messages, 1)

	calls := 0
	c.process(context.Background(), testMessage(), func(context.Context, []byte, []byte) error {
		calls++
		return nil
	})
	assert.Equal(t, 1, calls, "a rejected message must not open the breaker")
	assert.Len(t, dlq.messages, 1)
}

func TestCorrelationID(t *testing.T) {
	msg := testMessage()
	msg.Headers = []kafka.Header{{Key: correlationHeader, Value: []byte("corr-42")}}
	assert.Equal(t, "corr-42", correlationID(msg))

	generated := correlationID(testMessage())
	assert.NotEmpty(t, generated)
}
