package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

type KafkaOptions struct {
	Brokers []string
	Topic   string
	GroupID string
}

type kafkaBus struct {
	log    *logger.Logger
	writer *kafka.Writer
	opts   KafkaOptions
}

func NewKafkaBus(opts KafkaOptions, log *logger.Logger) (Bus, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("kafka bus requires at least one broker")
	}
	if strings.TrimSpace(opts.Topic) == "" {
		opts.Topic = "scope-events"
	}
	if strings.TrimSpace(opts.GroupID) == "" {
		opts.GroupID = "scopes-backend"
	}
	return &kafkaBus{
		log: log.With("service", "KafkaEventBus"),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(opts.Brokers...),
			Topic:        opts.Topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		opts: opts,
	}, nil
}

func (b *kafkaBus) Send(ctx context.Context, msg Message) error {
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Type)},
		},
		Time: time.Now().UTC(),
	})
}

func (b *kafkaBus) StartForwarder(ctx context.Context, onMsg func(m Message)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.opts.Brokers,
		Topic:   b.opts.Topic,
		GroupID: b.opts.GroupID,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					b.log.Warn("kafka read failed", "error", err)
				}
				return
			}
			msg := Message{Key: string(m.Key), Payload: m.Value}
			for _, h := range m.Headers {
				if h.Key == "event_type" {
					msg.Type = string(h.Value)
				}
			}
			onMsg(msg)
		}
	}()
	return nil
}

func (b *kafkaBus) Close() error {
	return b.writer.Close()
}
