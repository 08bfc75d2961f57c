// Package kafka wraps segmentio/kafka-go for the outbox publisher and the
// ledger-audit consumer. It knows nothing about wallet domain types -
// callers hand it topics, keys, and JSON-marshalable payloads.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kmassidik/walletengine/internal/common/config"
	"github.com/kmassidik/walletengine/internal/common/logger"
)

type Producer struct {
	writer *kafkago.Writer
	log    *logger.Logger
}

func NewProducer(cfg config.KafkaConfig, log *logger.Logger) *Producer {
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Balancer:               &kafkago.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, log: log}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Ping verifies brokers are reachable by dialing the first configured
// broker address.
func (p *Producer) Ping(ctx context.Context) error {
	// With several brokers the writer's address string is the comma-joined
	// list, so take the first entry.
	first := strings.Split(p.writer.Addr.String(), ",")[0]
	conn, err := kafkago.DialContext(ctx, "tcp", first)
	if err != nil {
		return fmt.Errorf("kafka: dial: %w", err)
	}
	return conn.Close()
}

// PublishEvent marshals event to JSON and writes it to topic keyed by key.
func (p *Producer) PublishEvent(ctx context.Context, topic string, key string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal: %w", err)
	}

	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

// UnmarshalEvent is a thin convenience wrapper kept symmetric with
// PublishEvent's marshaling.
func UnmarshalEvent(value []byte, out interface{}) error {
	if err := json.Unmarshal(value, out); err != nil {
		return fmt.Errorf("kafka: unmarshal: %w", err)
	}
	return nil
}
