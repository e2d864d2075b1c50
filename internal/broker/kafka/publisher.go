// Package kafkabroker publishes stored events to a Kafka topic.
package kafkabroker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzbill/logbook/internal/model"
	"github.com/rzbill/logbook/pkg/log"
)

type PublisherConfig struct {
	Brokers []string
	Topic   string
	// DefaultTag keys untagged events.
	DefaultTag string
	Logger     log.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per event, keyed by tag so that events of a
// tag stay ordered within a partition.
type Publisher struct {
	writer     messageWriter
	topic      string
	defaultTag string
	logger     log.Logger
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newPublisher(w, cfg)
}

func newPublisher(w messageWriter, cfg PublisherConfig) *Publisher {
	if cfg.DefaultTag == "" {
		cfg.DefaultTag = model.DefaultTag
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &Publisher{
		writer:     w,
		topic:      cfg.Topic,
		defaultTag: cfg.DefaultTag,
		logger:     cfg.Logger.With(log.Component("kafka"), log.Str("topic", cfg.Topic)),
	}
}

// Publish sends the batch in one call. It fails as a whole.
func (p *Publisher) Publish(ctx context.Context, events []model.LogEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("kafka: encode event %d: %w", ev.ID, err)
		}
		key := ev.Tag
		if key == "" {
			key = p.defaultTag
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(key),
			Value: value,
			Time:  time.UnixMilli(ev.Timestamp),
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to send messages", log.Err(err), log.Int("count", len(msgs)))
		return err
	}
	p.logger.Debug("messages sent", log.Int("count", len(msgs)))
	return nil
}

func (p *Publisher) Close() error {
	p.logger.Info("closing kafka publisher")
	return p.writer.Close()
}
