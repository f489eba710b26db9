// Package audit publishes fire-and-forget records of invoice operations.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Action string

const (
	ActionSubmit       Action = "submit"
	ActionRetrieve     Action = "retrieve"
	ActionChangeStatus Action = "change-status"
	ActionErase        Action = "erase"
)

// Event is one audited operation.
type Event struct {
	Action   Action    `json:"action"`
	Token    string    `json:"token,omitempty"`
	RecordID string    `json:"recordId,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Result   string    `json:"result"`
	Detail   string    `json:"detail,omitempty"`
	Time     time.Time `json:"time"`
}

// Sink accepts events. Record never fails the caller; delivery problems are logged.
type Sink interface {
	Record(ctx context.Context, e Event)
	Close() error
}

// LogSink writes events to a logger. It is used when no broker is configured.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a Sink that writes each event as one structured log line.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Record(_ context.Context, e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.log.Info().
		Str("action", string(e.Action)).
		Str("token", e.Token).
		Str("record_id", e.RecordID).
		Str("actor", e.Actor).
		Str("result", e.Result).
		Str("detail", e.Detail).
		Time("at", e.Time).
		Msg("audit")
}

func (s *LogSink) Close() error { return nil }

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
func (Nop) Close() error                  { return nil }
