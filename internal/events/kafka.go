package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

var _ Sink = (*KafkaSink)(nil)

// KafkaSink writes messages to Kafka. The topic is taken from each message.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *KafkaSink) Name() string {
	return "kafka"
}

func (k *KafkaSink) Send(ctx context.Context, msg Message) error {
	km := kafka.Message{
		Topic: msg.Topic,
		Value: msg.Value,
	}
	if msg.CorrelationID != "" {
		km.Headers = []kafka.Header{{Key: "X-Correlation-ID", Value: []byte(msg.CorrelationID)}}
	}
	if err := k.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("writing kafka message: %w", err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
