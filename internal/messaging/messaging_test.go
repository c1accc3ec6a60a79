package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type typedEvent struct {
	ID string `json:"id"`
}

func (typedEvent) EventType() string { return "test.happened" }

func TestMessageCarrier(t *testing.T) {
	msg := kafka.Message{}
	carrier := NewMessageCarrier(&msg)

	carrier.Set("traceparent", "a")
	carrier.Set("tracestate", "b")
	carrier.Set("traceparent", "c")

	if got := carrier.Get("traceparent"); got != "c" {
		t.Errorf("expected overwritten value c, got %q", got)
	}
	if got := carrier.Get("missing"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
	if keys := carrier.Keys(); len(keys) != 2 {
		t.Errorf("expected 2 keys, got %v", keys)
	}
}

func TestNewMessage(t *testing.T) {
	t.Run("typed event sets header", func(t *testing.T) {
		msg, err := newMessage("order-1", typedEvent{ID: "x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(msg.Key) != "order-1" {
			t.Errorf("expected key order-1, got %q", msg.Key)
		}
		if string(msg.Value) != `{"id":"x"}` {
			t.Errorf("unexpected value %s", msg.Value)
		}
		if got := NewMessageCarrier(&msg).Get(EventTypeHeader); got != "test.happened" {
			t.Errorf("expected event type header, got %q", got)
		}
	})

	t.Run("plain value has no header", func(t *testing.T) {
		msg, err := newMessage("k", map[string]int{"a": 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msg.Headers) != 0 {
			t.Errorf("expected no headers, got %v", msg.Headers)
		}
	})

	t.Run("unencodable value", func(t *testing.T) {
		if _, err := newMessage("k", make(chan int)); err == nil {
			t.Error("expected error")
		}
	})
}

func testConsumer(attempts int) *Consumer {
	return newConsumer("order.payment", "test-group", consumerConfig{
		maxAttempts: attempts,
		backoff:     time.Millisecond,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestConsumer_ProcessMessage(t *testing.T) {
	msg, err := newMessage("order-1", typedEvent{ID: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("passes message fields to handler", func(t *testing.T) {
		var got Message
		err := testConsumer(3).processMessage(context.Background(), msg, func(ctx context.Context, m Message) error {
			got = m
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Key != "order-1" || got.EventType != "test.happened" || string(got.Payload) != `{"id":"x"}` {
			t.Errorf("unexpected message %+v", got)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := testConsumer(3).processMessage(context.Background(), msg, func(ctx context.Context, m Message) error {
			calls++
			if calls < 3 {
				return errors.New("temporary")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("drops message after max attempts", func(t *testing.T) {
		calls := 0
		err := testConsumer(2).processMessage(context.Background(), msg, func(ctx context.Context, m Message) error {
			calls++
			return errors.New("permanent")
		})
		if err != nil {
			t.Fatalf("expected message to be dropped, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("stops when context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		err := testConsumer(5).processMessage(ctx, msg, func(ctx context.Context, m Message) error {
			cancel()
			return errors.New("failing")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
