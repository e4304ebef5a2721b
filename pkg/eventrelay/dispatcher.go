package eventrelay

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/stockflow/allocation-service/pkg/tracing"
)

// Producer is the slice of kafka.Writer the dispatcher needs.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher publishes domain events to one Kafka topic, keyed by
// subject so events for the same allocation land on the same partition.
type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topic: topic}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	headers := []kafka.Header{
		{Key: "event_name", Value: []byte(event.Name)},
	}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   d.topic,
		Key:     []byte(event.SubjectID),
		Value:   event.Payload,
		Headers: headers,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("dispatch failed", "subject", event.SubjectID, "event", event.Name, "err", err)
		return err
	}
	d.log.Info("event dispatched", "subject", event.SubjectID, "event", event.Name)
	return nil
}
