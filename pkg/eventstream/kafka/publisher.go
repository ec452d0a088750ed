// Package kafka publishes entry events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fileybot/filey/pkg/eventstream"
)

// Publisher writes entry events to a Kafka topic, keyed by chat id so one
// chat's events stay ordered within a partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishEntry serializes the event and writes it to the topic.
func (p *Publisher) PublishEntry(ctx context.Context, event *eventstream.EntryEvent) error {
	if event == nil {
		return eventstream.ErrNilEntryEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling entry event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.ChatID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("writing entry event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
