package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON messages keyed by token.
type KafkaSink struct {
	writer messageWriter
	log    zerolog.Logger
}

// NewKafkaSink returns a sink writing asynchronously to topic.
func NewKafkaSink(brokers []string, topic string, log zerolog.Logger) *KafkaSink {
	log = log.With().Str("component", "audit").Logger()
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("messages", len(msgs)).Msg("audit delivery failed")
			}
		},
	}
	return &KafkaSink{writer: writer, log: log}
}

func (s *KafkaSink) Record(ctx context.Context, e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	value, err := json.Marshal(e)
	if err != nil {
		s.log.Error().Err(err).Str("action", string(e.Action)).Msg("audit encode failed")
		return
	}
	key := e.Token
	if key == "" {
		key = e.RecordID
	}
	msg := kafka.Message{Key: []byte(key), Value: value, Time: e.Time}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("action", string(e.Action)).Msg("audit publish failed")
	}
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
