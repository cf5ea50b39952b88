package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cliossg/intake/pkg/cl/logger"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes JSON events to a single Kafka topic.
type Publisher struct {
	writer MessageWriter
	topic  string
	log    logger.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher for topic on brokers.
func NewPublisher(brokers []string, topic string, log logger.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
		topic: topic,
		log:   log,
		now:   time.Now,
	}
}

// NewPublisherWithWriter creates a publisher on an existing writer.
func NewPublisherWithWriter(w MessageWriter, topic string, log logger.Logger) *Publisher {
	return &Publisher{writer: w, topic: topic, log: log, now: time.Now}
}

// Start logs the destination; the writer connects lazily.
func (p *Publisher) Start(ctx context.Context) error {
	p.log.Infof("Publishing events to Kafka topic %s", p.topic)
	return nil
}

// Stop flushes pending messages and closes the writer.
func (p *Publisher) Stop(ctx context.Context) error {
	return p.writer.Close()
}

// Event is the envelope written to the topic.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Publish writes one event. key selects the partition so events about the
// same entity stay ordered.
func (p *Publisher) Publish(ctx context.Context, key, eventType string, data any) error {
	now := p.now()
	value, err := json.Marshal(Event{Type: eventType, OccurredAt: now.UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("cannot encode event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  now,
	}); err != nil {
		return fmt.Errorf("cannot publish %s event: %w", eventType, err)
	}
	return nil
}
