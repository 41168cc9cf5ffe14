// Package stream mirrors audit entries to Kafka for downstream compliance
// consumers.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"procura/internal/audit"
)

// KafkaStreamer produces one record per entry, keyed by entity id so every
// entry for a department lands on the same partition in append order.
type KafkaStreamer struct {
	client *kgo.Client
	topic  string
}

func NewKafkaStreamer(client *kgo.Client, topic string) *KafkaStreamer {
	return &KafkaStreamer{client: client, topic: topic}
}

func (k *KafkaStreamer) Stream(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(entry.EntityID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(entry.Action)},
			{Key: "entity_type", Value: []byte(entry.EntityType)},
		},
		Timestamp: entry.CreatedAt,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry: %w", err)
	}
	return nil
}
