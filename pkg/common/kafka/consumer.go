package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/physickd/platform/pkg/common/config"
	"github.com/physickd/platform/pkg/common/logger"
	"github.com/physickd/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	retryBase = 500 * time.Millisecond
	retryMax  = 30 * time.Second
)

type Consumer struct {
	reader    MessageReader
	retryBase time.Duration
	retryMax  time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(cfg *config.Config, topic string, groupID string) *Consumer {
	if groupID == "" {
		groupID = cfg.KafkaGroupID
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return NewConsumerWithReader(reader)
}

func NewConsumerWithReader(reader MessageReader) *Consumer {
	return &Consumer{reader: reader, retryBase: retryBase, retryMax: retryMax}
}

// Consume runs handler for each message until ctx is done. Undecodable
// messages are committed and dropped. A failing message is retried with
// backoff and nothing after it is fetched or committed until it succeeds,
// since a commit of a later offset would also cover it.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).Error("Failed to unmarshal event")
			c.commit(ctx, message)
			continue
		}

		if err := c.handle(ctx, handler, message, event); err != nil {
			return err
		}

		c.commit(ctx, message)
	}
}

// handle retries handler on event until it succeeds or ctx is done.
func (c *Consumer) handle(ctx context.Context, handler EventHandler, message kafka.Message, event models.Event) error {
	delay := c.retryBase
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}

		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"offset":   message.Offset,
			"attempt":  attempt,
			"retry_in": delay.String(),
		}).Error("Failed to process event")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.retryMax {
			delay = c.retryMax
		}
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
