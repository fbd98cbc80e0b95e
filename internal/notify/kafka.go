package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of a Kafka writer the channel uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ MessageWriter = (*kafka.Writer)(nil)

// event is the JSON published for downstream push gateways.
type event struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// KafkaChannel publishes notifications to a Kafka topic.
type KafkaChannel struct {
	writer MessageWriter
	source string
}

// NewKafkaChannel creates a synchronous writer for topic on brokers. source
// identifies this client in published events and keys the partition.
func NewKafkaChannel(brokers []string, topic, source string) *KafkaChannel {
	return NewKafkaChannelWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}, source)
}

// NewKafkaChannelWithWriter uses an existing writer.
func NewKafkaChannelWithWriter(w MessageWriter, source string) *KafkaChannel {
	return &KafkaChannel{writer: w, source: source}
}

// Name implements Channel.
func (c *KafkaChannel) Name() string { return "kafka" }

// Deliver implements Channel.
func (c *KafkaChannel) Deliver(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(event{
		Type:      string(msg.Type),
		Title:     msg.Title,
		Body:      msg.Body,
		Source:    c.source,
		Timestamp: msg.At,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	if err := c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(c.source),
		Value: payload,
		Time:  msg.At,
	}); err != nil {
		return fmt.Errorf("failed to publish notification event: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (c *KafkaChannel) Close() error {
	return c.writer.Close()
}
