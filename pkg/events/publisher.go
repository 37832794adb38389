// Package events publishes ingest-result notifications to an optional
// message bus. It is ambient infrastructure: the ingestion service
// (pkg/ingest) calls Publisher after a successful commit, but a nil or
// disabled Publisher is a legal no-op — nothing on the ingest-critical
// path depends on a broker being reachable.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/trustify/trustify/pkg/config"
)

// IngestResultEvent is published once per committed document ingest.
type IngestResultEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	DocumentID string    `json:"document_id"`
	Format     string    `json:"format"`
	Warnings   int       `json:"warnings"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher publishes ingest-result events to Kafka.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewPublisher creates a Kafka-backed publisher. It returns (nil, nil)
// when cfg.Enabled is false, so callers can do:
//
//	pub, err := events.NewPublisher(cfg.Events)
//	if err != nil { ... }
//	pub.Publish(ctx, evt) // no-op if pub == nil
func NewPublisher(cfg config.EventsConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &Publisher{
		producer: producer,
		topic:    cfg.Topic,
		logger:   slog.Default().With("component", "events-publisher"),
	}, nil
}

// Publish sends an ingest-result event. Nil-receiver safe: a disabled
// publisher silently drops the event.
func (p *Publisher) Publish(ctx context.Context, evt IngestResultEvent) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal ingest event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(evt.DocumentID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish ingest event: %w", err)
	}

	p.logger.DebugContext(ctx, "ingest event published",
		"document_id", evt.DocumentID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close releases the underlying producer. Nil-receiver safe.
func (p *Publisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
