package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/parlor/parlor/internal/bus"
)

// KafkaConfig holds the turn-event feed settings.
type KafkaConfig struct {
	Enabled bool     `json:"enabled" envconfig:"ENABLED"`
	Brokers []string `json:"brokers" envconfig:"BROKERS"`
	Topic   string   `json:"topic" envconfig:"TOPIC"`
}

// kafkaWriter is the slice of the Kafka client the sink uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every turn event as a JSON envelope, keyed by channel
// so per-channel ordering is preserved across partitions.
type KafkaSink struct {
	cfg    KafkaConfig
	writer kafkaWriter
}

// NewKafkaSink creates the sink. A nil writer builds one from the config.
func NewKafkaSink(cfg KafkaConfig, writer kafkaWriter) *KafkaSink {
	if writer == nil {
		writer = &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		}
	}
	return &KafkaSink{cfg: cfg, writer: writer}
}

func (s *KafkaSink) Name() string { return "kafka" }

// Deliver publishes one event. Chunk events are skipped to keep the feed at
// message granularity.
func (s *KafkaSink) Deliver(ctx context.Context, ev *bus.Event) error {
	if ev.Kind == bus.EventChunk {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ChannelID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("write to topic %s: %w", s.cfg.Topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.writer.Close() }
