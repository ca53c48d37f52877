package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"tasklist/internal/config"
	"tasklist/internal/models"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

type recorder struct {
	invalidated []string
	broadcast   []models.RevalidateEvent
}

func (r *recorder) Invalidate(_ context.Context, path string) error {
	r.invalidated = append(r.invalidated, path)
	return errors.New("ignored")
}

func (r *recorder) Broadcast(_ context.Context, ev models.RevalidateEvent) {
	r.broadcast = append(r.broadcast, ev)
}

func TestConsumeAppliesAndCommitsEveryMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{
		msgs: []kafka.Message{
			{Value: []byte(`{"path":"/","origin":"a"}`)},
			{Value: []byte(`not json`)},
			{Value: []byte(`{"origin":"b"}`)},
		},
		cancel: cancel,
	}
	rec := &recorder{}

	if err := New(reader, rec, rec).Consume(ctx); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(reader.committed) != 3 {
		t.Fatalf("committed %d messages, want 3", len(reader.committed))
	}
	if len(rec.invalidated) != 1 || rec.invalidated[0] != "/" {
		t.Fatalf("invalidated = %v", rec.invalidated)
	}
	if len(rec.broadcast) != 1 || rec.broadcast[0].Origin != "a" {
		t.Fatalf("broadcast = %v", rec.broadcast)
	}
}

func TestHandleRejectsMissingPath(t *testing.T) {
	w := New(nil, nil, nil)
	if err := w.Handle(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected error for event without path")
	}
	if err := w.Handle(context.Background(), []byte(`{"path":"/"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func TestReaderConfigStartsAtTail(t *testing.T) {
	cfg := ReaderConfig("replica-a")
	if cfg.StartOffset != kafka.LastOffset {
		t.Fatalf("StartOffset = %d, want LastOffset", cfg.StartOffset)
	}
	if want := config.Get().KafkaGroupID + "-replica-a"; cfg.GroupID != want {
		t.Fatalf("GroupID = %q, want %q", cfg.GroupID, want)
	}
	if cfg.Topic != config.Get().KafkaTopic {
		t.Fatalf("Topic = %q", cfg.Topic)
	}
}
