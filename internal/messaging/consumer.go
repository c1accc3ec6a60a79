package messaging

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("messaging/consumer")

// Message is what handlers receive: the raw payload plus its routing data.
type Message struct {
	Key       string
	EventType string
	Payload   []byte
}

type Handler func(ctx context.Context, msg Message) error

type Consumer struct {
	reader      *kafka.Reader
	topic       string
	groupID     string
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

type consumerConfig struct {
	reader      kafka.ReaderConfig
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

type ConsumerOption func(*consumerConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(cfg *consumerConfig) {
		cfg.reader.StartOffset = offset
	}
}

// WithRetry makes a failing handler run up to attempts times, sleeping backoff
// times the attempt number in between. A message that still fails is logged
// and committed so the partition keeps moving.
func WithRetry(attempts int, backoff time.Duration) ConsumerOption {
	return func(cfg *consumerConfig) {
		cfg.maxAttempts = attempts
		cfg.backoff = backoff
	}
}

func WithLogger(logger *slog.Logger) ConsumerOption {
	return func(cfg *consumerConfig) {
		cfg.logger = logger
	}
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := consumerConfig{
		reader: kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		},
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	c := newConsumer(topic, groupID, cfg)
	c.reader = kafka.NewReader(cfg.reader)
	return c
}

func newConsumer(topic, groupID string, cfg consumerConfig) *Consumer {
	if cfg.maxAttempts < 1 {
		cfg.maxAttempts = 1
	}
	return &Consumer{
		topic:       topic,
		groupID:     groupID,
		maxAttempts: cfg.maxAttempts,
		backoff:     cfg.backoff,
		logger:      cfg.logger,
	}
}

// Consume fetches messages until ctx is done or the reader fails. Offsets are
// committed after the handler finishes with the message.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.processMessage(ctx, msg, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

// processMessage only returns an error when ctx ends mid-retry.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message, handler Handler) error {
	carrier := NewMessageCarrier(&msg)
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)
	eventType := carrier.Get(EventTypeHeader)

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
			attribute.String("messaging.event_type", eventType),
		),
	)
	defer span.End()

	m := Message{Key: string(msg.Key), EventType: eventType, Payload: msg.Value}

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = handler(spanCtx, m); err == nil {
			return nil
		}

		span.RecordError(err, trace.WithAttributes(attribute.Int("attempt", attempt)))
		if attempt == c.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, ctx.Err().Error())
			return ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}

	span.SetStatus(codes.Error, err.Error())
	c.logger.ErrorContext(spanCtx, "dropping message after retries",
		"topic", c.topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"event_type", eventType,
		"attempts", c.maxAttempts,
		"error", err,
	)
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
