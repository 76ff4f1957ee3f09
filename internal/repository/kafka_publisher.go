package repository

import (
	"context"
	"strconv"

	"PriceTrend/internal/domain/models"
	"PriceTrend/internal/domain/repository"
	pkgkafka "PriceTrend/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. The hour timestamp is
// the message key, so replays of the same hour land in the same
// partition and downstream consumers can dedupe.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishSample(ctx context.Context, s models.Sample) error {
	key := []byte(strconv.FormatInt(s.Timestamp, 10))
	return p.producer.Publish(ctx, p.topic, key, map[string]interface{}{
		"ts":          s.Timestamp,
		"price_cents": s.PriceCents,
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher is used when Kafka is disabled in config.
type NoopPublisher struct{}

func (NoopPublisher) PublishSample(context.Context, models.Sample) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }
