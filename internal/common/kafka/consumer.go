package kafka

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/logger"
)

type Consumer struct {
	reader *kafkago.Reader
	log    *logger.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, log *logger.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   topic,
	})
	return &Consumer{reader: reader, log: log}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Consume reads messages until ctx is canceled or a read fails. An error
// returned by handle is logged and the loop continues with the next
// message rather than stopping on one bad message.
func (c *Consumer) Consume(ctx context.Context, handle func(ctx context.Context, key, value []byte) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka: read: %w", err)
		}

		if err := handle(ctx, msg.Key, msg.Value); err != nil {
			c.log.Errorf("handler error for topic %s: %v", msg.Topic, err)
		}
	}
}
