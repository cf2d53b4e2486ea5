package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kilianp07/conformance/core/model"
)

// KafkaConfig configures the Kafka result publisher.
type KafkaConfig struct {
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	BatchTimeout time.Duration `json:"batch_timeout"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaStore publishes each result as a JSON message keyed by group key.
type KafkaStore struct {
	w messageWriter
}

// NewKafkaStore builds a synchronous writer acknowledged by the partition
// leader.
func NewKafkaStore(cfg KafkaConfig) (*KafkaStore, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka: empty topic")
	}
	bt := cfg.BatchTimeout
	if bt <= 0 {
		bt = 50 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: bt,
	}
	return &KafkaStore{w: w}, nil
}

func (s *KafkaStore) Put(ctx context.Context, res model.FitnessResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(res.Key.String()),
		Value: b,
		Headers: []kafka.Header{
			{Key: "case", Value: []byte(res.Case)},
			{Key: "status", Value: []byte(res.Status)},
		},
	})
}

func (s *KafkaStore) Close() error { return s.w.Close() }
