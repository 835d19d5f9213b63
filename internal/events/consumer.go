package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Consumer reads business events from Kafka and feeds them to the handler.
// Offsets are committed after handling. Handler failures are logged and the
// offset is committed anyway: reconcile is idempotent and the fix-missing
// pass backfills anything that slipped through, so stalling the partition
// on one bad record is the worse trade.
type Consumer struct {
	reader  *kafka.Reader
	handler *Handler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler *Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		handler: handler,
		logger:  logger,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.logger.Error("skipping undecodable event",
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()))
		} else if err := c.handler.Handle(ctx, env); err != nil {
			c.logger.Error("event handling failed",
				slog.String("event_id", env.ID.String()),
				slog.String("type", string(env.Type)),
				slog.String("error", err.Error()))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("commit offset: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
