package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"usage-watch/src/models"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one JSON message per record, keyed by customer id so a
// customer's anomalies stay ordered within a partition.
type KafkaSink struct {
	Topic  string
	writer messageWriter
}

// -----------------------------------------------------------------------------

func NewKafkaSink(cfg models.MKafkaSinkConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}

	return &KafkaSink{
		Topic: cfg.Topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}, nil
}

// -----------------------------------------------------------------------------

func (s *KafkaSink) Name() string { return "kafka" }

// -----------------------------------------------------------------------------

func (s *KafkaSink) Publish(ctx context.Context, records []models.MAnomalyRecord) error {
	if len(records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.CustomerID),
			Value: payload,
			Time:  time.Now().UTC(),
		})
	}

	return s.writer.WriteMessages(ctx, msgs...)
}

// -----------------------------------------------------------------------------

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
