package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSink_Record(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSink{writer: w, log: zerolog.Nop()}

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Record(context.Background(), Event{Action: ActionSubmit, Token: "abc", Actor: "org-1", Result: "ok", Time: at})

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("abc"), w.msgs[0].Key)

	var got Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, ActionSubmit, got.Action)
	assert.Equal(t, "org-1", got.Actor)
	assert.True(t, at.Equal(got.Time))

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_PublishFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	w := &fakeWriter{err: errors.New("broker unreachable")}
	s := &KafkaSink{writer: w, log: zerolog.New(&buf)}

	s.Record(context.Background(), Event{Action: ActionErase, RecordID: "r-1", Result: "ok"})

	assert.Contains(t, buf.String(), "audit publish failed")
	assert.Contains(t, buf.String(), "broker unreachable")
}

func TestLogSink_Record(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(zerolog.New(&buf))

	s.Record(context.Background(), Event{Action: ActionChangeStatus, Token: "tok", Result: "conflict", Detail: "trashed is terminal"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, "change-status", line["action"])
	assert.Equal(t, "conflict", line["result"])
}
