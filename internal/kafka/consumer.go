package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Consumer struct {
	reader *kafka.Reader
	log    *zap.Logger
}

func NewConsumer(brokers []string, groupID, topic string, log *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		log: log,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume commits a message only after handler succeeds. A malformed booking event is
// logged and committed so it cannot block the partition.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, BookingEvent) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			metrics.IncKafkaError("consumer", "fetch")
			return err
		}

		event, err := DecodeBookingEvent(msg.Value)
		if err != nil {
			c.log.Warn("skipping malformed message", zap.Int64("offset", msg.Offset), zap.Error(err))
		} else if err := handler(ctx, event); err != nil {
			metrics.IncKafkaError("consumer", "handle")
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			metrics.IncKafkaError("consumer", "commit")
			return err
		}
		metrics.IncKafkaProcessed()
	}
}
