package repository

import (
	"context"

	"TradeLens/internal/domain/models"
	"TradeLens/internal/domain/repository"
	pkgkafka "TradeLens/pkg/kafka"
)

// KafkaEventPublisher emits journal-changed events to a Kafka topic. Keyed
// by event type so consumers that only care about imports or clears can
// partition-filter cheaply.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates an event publisher for topic.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev models.JournalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Type), ev)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
