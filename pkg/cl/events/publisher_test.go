package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cliossg/intake/pkg/cl/logger"
)

type stubWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesEnvelope(t *testing.T) {
	w := &stubWriter{}
	p := NewPublisherWithWriter(w, "submissions.created", logger.NewNoopLogger())
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	p.now = func() time.Time { return at }

	data := map[string]any{"id": "sub-1", "kind": "contact"}
	if err := p.Publish(context.Background(), "sub-1", "submission.created", data); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "sub-1" {
		t.Errorf("Key = %q, want sub-1", msg.Key)
	}
	if !msg.Time.Equal(at) {
		t.Errorf("Time = %v, want %v", msg.Time, at)
	}

	var got struct {
		Type       string         `json:"type"`
		OccurredAt string         `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if got.Type != "submission.created" {
		t.Errorf("type = %q", got.Type)
	}
	if got.OccurredAt != "2026-10-19T07:30:00Z" {
		t.Errorf("occurred_at = %q, want UTC timestamp", got.OccurredAt)
	}
	if got.Data["id"] != "sub-1" || got.Data["kind"] != "contact" {
		t.Errorf("data = %v", got.Data)
	}
}

func TestPublishErrors(t *testing.T) {
	t.Run("writer failure", func(t *testing.T) {
		boom := errors.New("broker unreachable")
		p := NewPublisherWithWriter(&stubWriter{err: boom}, "t", logger.NewNoopLogger())
		if err := p.Publish(context.Background(), "k", "submission.created", nil); !errors.Is(err, boom) {
			t.Errorf("Publish() error = %v, want wrapped writer error", err)
		}
	})

	t.Run("unencodable data", func(t *testing.T) {
		w := &stubWriter{}
		p := NewPublisherWithWriter(w, "t", logger.NewNoopLogger())
		if err := p.Publish(context.Background(), "k", "submission.created", make(chan int)); err == nil {
			t.Error("Publish() error = nil, want encode error")
		}
		if len(w.msgs) != 0 {
			t.Error("nothing should be written")
		}
	})
}

func TestStopClosesWriter(t *testing.T) {
	w := &stubWriter{}
	p := NewPublisherWithWriter(w, "t", logger.NewNoopLogger())
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
}
