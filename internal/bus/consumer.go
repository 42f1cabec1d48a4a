package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one message value. Handlers own their error handling:
// a stage failure is recorded against the submission, never bubbled up to
// force redelivery.
type Handler func(ctx context.Context, value []byte)

// Consumer reads one topic under one consumer group. Offsets are committed
// on a short interval after fetch, so delivery is effectively at-most-once
// for durable side effects; stage workers are idempotent by submission id
// where it matters.
type Consumer struct {
	reader *kafka.Reader
	topic  string
	logger *slog.Logger
}

// NewConsumer builds a consumer-group reader for a topic. Fresh groups start
// from the earliest offset so a new deployment drains the backlog.
func NewConsumer(brokers []string, topic, group string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        group,
			StartOffset:    kafka.FirstOffset,
			MinBytes:       1,
			MaxBytes:       10 * 1024 * 1024,
			CommitInterval: time.Second,
		}),
		topic:  topic,
		logger: slog.With("component", "bus.consumer", "topic", topic, "group", group),
	}
}

// Run consumes until ctx is canceled or the reader is closed. The in-flight
// handler always runs to completion; cancellation is only observed between
// messages.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Info("consumer stopped")
				return nil
			}
			c.logger.Error("read failed", "error", err)
			return err
		}

		// Detach from the consume loop's cancellation so shutdown cannot
		// interrupt a handler mid-transaction.
		handler(context.WithoutCancel(ctx), msg.Value)
	}
}

// Close stops fetching and releases the group membership.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
