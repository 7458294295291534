package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

// Topics maps registration event types to Kafka topics.
type Topics struct {
	Created       string
	StatusChanged string
}

func (t Topics) For(eventType string) (string, error) {
	switch eventType {
	case models.RegistrationCreated:
		return t.Created, nil
	case models.RegistrationStatusChanged:
		return t.StatusChanged, nil
	}
	return "", fmt.Errorf("no topic for event type %q", eventType)
}

func (t Topics) All() []string {
	return []string{t.Created, t.StatusChanged}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer messageWriter
	Topics Topics
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics Topics, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// PublishRegistrationEvent writes ev to its topic, keyed by registration ID so the events
// of one registration stay ordered.
func (p *Producer) PublishRegistrationEvent(ctx context.Context, ev models.RegistrationEvent) error {
	topic, err := p.Topics.For(ev.Type)
	if err != nil {
		return err
	}

	msgBytes, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.Logger.LogKafka("PUBLISH", topic, ev.RegistrationID)

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(ev.RegistrationID),
		Value: msgBytes,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
