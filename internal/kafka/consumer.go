package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads registration events back from Kafka. Each instance uses its own group so
// every instance sees every event and can fan it out to its live subscribers.
type Consumer struct {
	reader messageReader
	logger *logger.Logger
	// RetryDelay is the first pause after a failed read; it doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

func NewConsumer(brokers []string, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{reader: reader, logger: log, RetryDelay: 500 * time.Millisecond, MaxRetryDelay: 30 * time.Second}
}

// Start blocks, passing every decoded event to handler until ctx is cancelled. Failed reads
// are logged and retried with backoff.
func (c *Consumer) Start(ctx context.Context, handler func(models.RegistrationEvent)) error {
	c.logger.Info("KAFKA", "registration event consumer started")

	delay := c.RetryDelay
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("read message: %v, retrying in %s", err, delay))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = c.nextDelay(delay)
			continue
		}
		delay = c.RetryDelay

		var ev models.RegistrationEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("skip malformed message on %s: %v", msg.Topic, err))
			continue
		}

		c.logger.LogKafka("RECEIVE", msg.Topic, ev.RegistrationID)
		handler(ev)
	}
}

func (c *Consumer) nextDelay(delay time.Duration) time.Duration {
	if delay <= 0 {
		return time.Millisecond
	}
	delay *= 2
	if c.MaxRetryDelay > 0 && delay > c.MaxRetryDelay {
		return c.MaxRetryDelay
	}
	return delay
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
