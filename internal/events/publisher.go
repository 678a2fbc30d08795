// Package events publishes dual-write outcome events.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/config"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
)

// Publisher sends paper events downstream.
type Publisher interface {
	Publish(ctx context.Context, event domain.PaperEvent) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one JSON message per event, keyed by paper id so that
// events for one paper stay ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a publisher for the configured topic.
func NewKafkaPublisher(cfg *config.KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
	return newKafkaPublisher(writer, metrics, logger)
}

func newKafkaPublisher(w messageWriter, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		metrics: metrics,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish writes the event. The error is returned to the caller, which decides
// whether it matters.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.PaperEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordEventPublished(false)
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.PaperID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.RecordEventPublished(false)
		return fmt.Errorf("write event %s: %w", event.EventID, err)
	}

	p.metrics.RecordEventPublished(true)
	p.logger.Debug().
		Str("event_type", event.Type).
		Str("paper_id", event.PaperID).
		Msg("published paper event")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, domain.PaperEvent) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// New returns a Kafka publisher when enabled, otherwise a NopPublisher.
func New(cfg *config.KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) Publisher {
	if cfg == nil || !cfg.Enabled {
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg, metrics, logger)
}
