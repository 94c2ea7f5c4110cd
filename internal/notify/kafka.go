package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/helixir/peer-review-service/internal/domain"
)

// KafkaConfig holds event stream publisher configuration.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
}

// KafkaPublisher publishes lifecycle events to a Kafka topic. Messages are
// keyed by article ID so all events for one article land on the same
// partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// Compile-time interface verification.
var _ Channel = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a Kafka event stream channel.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, domain.NewValidationError("brokers", "at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, domain.NewValidationError("topic", "Kafka topic is required")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{writer: writer}, nil
}

// Name implements Channel.
func (p *KafkaPublisher) Name() string { return "kafka" }

// streamEnvelope is the wire format for published lifecycle events.
type streamEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	ArticleID  string          `json:"article_id"`
	JournalID  string          `json:"journal_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Send publishes the event to the topic.
func (p *KafkaPublisher) Send(ctx context.Context, event *domain.LifecycleEvent) error {
	envelope := streamEnvelope{
		EventID:    event.EventID,
		EventType:  event.EventType,
		ArticleID:  event.ArticleID.String(),
		JournalID:  event.JournalID.String(),
		OccurredAt: event.OccurredAt,
		Payload:    event.Payload,
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ArticleID.String()),
		Value: value,
		Time:  event.OccurredAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", event.EventID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
