package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "zerotrust/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the Kafka sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink mirrors events onto a topic, keyed by decision so allow and deny
// records keep their relative order per partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, event audit.Event) error {
	record, err := newKafkaRecord(s.topic, event)
	if err != nil {
		return err
	}
	return s.producer.ProduceSync(ctx, record).FirstErr()
}

func newKafkaRecord(topic string, event audit.Event) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal audit event: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.Decision),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(event.ID.String())},
			{Key: "request_id", Value: []byte(event.RequestID)},
		},
		Timestamp: event.Timestamp,
	}, nil
}
