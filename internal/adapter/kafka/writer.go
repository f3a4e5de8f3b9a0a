package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/couchcryptid/rainfall-explorer/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces region entries to a Kafka topic.
// It implements pipeline.RegionObserver.
type Publisher struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates an asynchronous Kafka producer for the region topic.
// Delivery results are reported through metrics and logs only, so a slow or
// absent broker never holds up a cache fill.
func NewPublisher(brokers []string, topic string, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	p := &Publisher{metrics: metrics, logger: logger}
	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   p.completed,
	}
	return p
}

// RegionComputed publishes a freshly computed entry keyed by location.
func (p *Publisher) RegionComputed(ctx context.Context, entry domain.RegionEntry) {
	msg, err := serializeToMessage(entry)
	if err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("serialize region failed", "location", entry.Key, "error", err)
		return
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish region failed", "location", entry.Key, "error", err)
	}
}

func (p *Publisher) completed(messages []kafkago.Message, err error) {
	if err != nil {
		p.metrics.PublishErrors.Add(float64(len(messages)))
		p.logger.Error("region delivery failed", "messages", len(messages), "error", err)
		return
	}
	p.metrics.RegionsPublished.Add(float64(len(messages)))
}

// Close flushes pending messages and closes the producer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a RegionEntry into a Kafka message.
func serializeToMessage(entry domain.RegionEntry) (kafkago.Message, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region entry: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(entry.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "location", Value: []byte(entry.Key)},
			{Key: "computed_at", Value: []byte(entry.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
