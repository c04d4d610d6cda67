package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON payloads. The topic is chosen per message.
type Producer struct {
	brokers []string
	writer  messageWriter
	logger  logger.Logger
}

func NewProducer(brokers []string, log logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		brokers: brokers,
		writer:  writer,
		logger:  log.With("component", "kafka_producer"),
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug("published", "topic", topic, "key", key)
	return nil
}

// PublishWithRetry retries with a linear backoff, stopping early when ctx ends.
func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lastErr = p.Publish(ctx, topic, key, payload)
		if lastErr == nil {
			return nil
		}
		p.logger.Warn("publish attempt failed", "attempt", i+1, "topic", topic, "error", lastErr)

		if i < maxRetries-1 {
			select {
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// RetryingPublisher publishes through PublishWithRetry with a fixed attempt count.
type RetryingPublisher struct {
	producer    *Producer
	maxAttempts int
}

func (p *Producer) WithRetry(maxAttempts int) *RetryingPublisher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingPublisher{producer: p, maxAttempts: maxAttempts}
}

func (r *RetryingPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	return r.producer.PublishWithRetry(ctx, topic, key, payload, r.maxAttempts)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(); err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}
	return nil
}
