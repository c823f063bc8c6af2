package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

// Publisher delivers venue events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event *VenueEvent) error
	PublishBatch(ctx context.Context, events []*VenueEvent) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *VenueEvent) error        { return nil }
func (NoopPublisher) PublishBatch(context.Context, []*VenueEvent) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }

// Shared wraps a publisher owned by someone else; its Close is a no-op so a
// venue closing does not shut down a producer other venues still use.
func Shared(p Publisher) Publisher {
	return sharedPublisher{p}
}

type sharedPublisher struct {
	Publisher
}

func (sharedPublisher) Close() error { return nil }

// KafkaPublisherConfig contains configuration for the Kafka venue event publisher
type KafkaPublisherConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaPublisherConfig returns a default publisher configuration
func DefaultKafkaPublisherConfig() *KafkaPublisherConfig {
	return &KafkaPublisherConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "venue-events",
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// SaramaConfig translates the publisher configuration into a sarama config.
func (c *KafkaPublisherConfig) SaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = c.RequiredAcks
	saramaConfig.Producer.Compression = c.CompressionType
	saramaConfig.Producer.Retry.Max = c.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = c.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = c.MaxMessageBytes

	// Idempotent producers require a single in-flight request
	if c.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps a customer's events ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// KafkaPublisher publishes venue events to a Kafka topic
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects to the configured brokers
func NewKafkaPublisher(config *KafkaPublisherConfig) (*KafkaPublisher, error) {
	if config == nil {
		config = DefaultKafkaPublisherConfig()
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	producer, err := sarama.NewSyncProducer(config.Brokers, config.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, config.Topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish sends a single event
func (kp *KafkaPublisher) Publish(ctx context.Context, event *VenueEvent) error {
	message, err := kp.message(event)
	if err != nil {
		return err
	}
	if _, _, err := kp.producer.SendMessage(message); err != nil {
		return fmt.Errorf("failed to send %s event to Kafka: %w", event.Type, err)
	}
	return nil
}

// PublishBatch sends events in one request
func (kp *KafkaPublisher) PublishBatch(ctx context.Context, events []*VenueEvent) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]*sarama.ProducerMessage, 0, len(events))
	for _, event := range events {
		message, err := kp.message(event)
		if err != nil {
			return err
		}
		messages = append(messages, message)
	}

	if err := kp.producer.SendMessages(messages); err != nil {
		return fmt.Errorf("failed to send batch of %d events to Kafka: %w", len(messages), err)
	}
	return nil
}

// Close closes the underlying producer
func (kp *KafkaPublisher) Close() error {
	if kp.producer != nil {
		if err := kp.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}

func (kp *KafkaPublisher) message(event *VenueEvent) (*sarama.ProducerMessage, error) {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic:     kp.topic,
		Key:       sarama.StringEncoder(event.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   createHeaders(event),
		Timestamp: event.OccurredAt,
	}, nil
}

// createHeaders creates Kafka headers for an event
func createHeaders(event *VenueEvent) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("hold_id"), Value: []byte(strconv.Itoa(event.HoldID))},
		{Key: []byte("producer"), Value: []byte("tics-venue")},
	}

	if event.ReservationID != "" {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("reservation_id"),
			Value: []byte(event.ReservationID),
		})
	}

	if event.ExpiresAt != nil {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("expires_at"),
			Value: []byte(event.ExpiresAt.Format(time.RFC3339)),
		})
	}

	return headers
}
