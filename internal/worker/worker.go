package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"tasklist/internal/config"
	"tasklist/internal/models"
	"tasklist/internal/queue"
	"tasklist/internal/revalidate"
	"tasklist/pkg/logger"
)

// MessageReader is the part of *kafka.Reader the worker uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Worker applies revalidation events from the bus to this replica: it drops the
// page cache entry and pushes the event to local subscribers.
type Worker struct {
	reader MessageReader
	cache  revalidate.PageInvalidator
	local  revalidate.Broadcaster
}

// New returns a worker over reader.
func New(reader MessageReader, cache revalidate.PageInvalidator, local revalidate.Broadcaster) *Worker {
	return &Worker{reader: reader, cache: cache, local: local}
}

// Run starts the Kafka consumer with a per-replica group so every replica sees
// every event. It returns when ctx is done.
func Run(ctx context.Context, replica string, cache revalidate.PageInvalidator, local revalidate.Broadcaster) error {
	if !queue.Enabled() {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return nil
	}
	reader := kafka.NewReader(ReaderConfig(replica))
	defer reader.Close()
	logger.Info(ctx, "Kafka consumer started", "topic", queue.Topic(), "replica", replica)
	return New(reader, cache, local).Consume(ctx)
}

// ReaderConfig is the consumer config of one replica. A new group starts at the
// tail of the topic: events published before the replica booted concern pages
// it has never served.
func ReaderConfig(replica string) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:     queue.Brokers(),
		Topic:       queue.Topic(),
		GroupID:     config.Get().KafkaGroupID + "-" + replica,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1e6,
	}
}

// Consume processes messages until ctx is done.
func (w *Worker) Consume(ctx context.Context) error {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := w.Handle(ctx, msg.Value); err != nil {
			// Commit anyway to avoid a poison pill blocking the partition
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
		}
		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}

// Handle applies one encoded RevalidateEvent.
func (w *Worker) Handle(ctx context.Context, payload []byte) error {
	var ev models.RevalidateEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode revalidate event: %w", err)
	}
	if ev.Path == "" {
		return fmt.Errorf("revalidate event without path")
	}
	if w.cache != nil {
		if err := w.cache.Invalidate(ctx, ev.Path); err != nil {
			logger.Warn(ctx, "Worker cache invalidation failed", "error", err, "path", ev.Path)
		}
	}
	if w.local != nil {
		w.local.Broadcast(ctx, ev)
	}
	return nil
}
