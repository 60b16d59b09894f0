// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("events")

// KafkaPublisher sends events through a synchronous sarama producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewProducerConfig returns the sarama settings used for event publishing.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	return cfg
}

// NewKafkaPublisher connects to the brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// PublishFlagged sends the event keyed by user id so that a user's events
// stay ordered within one partition.
func (p *KafkaPublisher) PublishFlagged(ctx context.Context, event domain.FlaggedEvent) error {
	_, span := tracer.Start(ctx, "KafkaPublisher.PublishFlagged")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", event.TransactionID))

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.UserID),
		Value:     sarama.ByteEncoder(data),
		Timestamp: event.OccurredAt,
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return &domain.ErrExternalService{Service: "kafka", Err: err}
	}

	p.logger.Debug("event published",
		zap.String("topic", p.topic),
		zap.String("type", event.Type),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct{}

// PublishFlagged does nothing.
func (NopPublisher) PublishFlagged(context.Context, domain.FlaggedEvent) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }
