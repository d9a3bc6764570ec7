package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-labs/catalog-search/pkg/config"
	"github.com/meridian-labs/catalog-search/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one message. A non-nil error skips the commit;
// the message is redelivered on the next rebalance.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer pulls a topic and feeds each message to its handler.
type Consumer struct {
	reader *kafka.Reader
	handle MessageHandler
	log    *slog.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1e3,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		}),
		handle: handler,
		log:    logger.WithComponent("kafka-consumer").With("topic", topic),
	}
}

// Start consumes until ctx is cancelled. Fetch failures back off briefly so
// a dead broker does not spin the loop.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("consuming")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.log.Error("fetch failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return c.reader.Close()
			}
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	if err := c.handle(ctx, msg.Key, msg.Value); err != nil {
		c.log.Error("handler failed, message not committed",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error("commit failed",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("decoding kafka message: %w", err)
	}
	return out, nil
}
