package stage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dcamarena/ingest-sagas/internal/auditlog"
	"github.com/dcamarena/ingest-sagas/internal/record"
)

// QueuePublisher appends each record to a Redis stream. Stage 2.
//
// XADD gives at-least-once delivery: a replayed attempt for a record whose
// SUCCESS ledger entry was lost produces a duplicate stream entry, which
// downstream consumers dedup on unique_id.
type QueuePublisher struct {
	client *redis.Client
	stream string
}

// NewQueuePublisher returns a QueuePublisher targeting the given stream.
func NewQueuePublisher(client *redis.Client, stream string) *QueuePublisher {
	return &QueuePublisher{client: client, stream: stream}
}

// Stage implements saga.Executor.
func (p *QueuePublisher) Stage() auditlog.Stage {
	return auditlog.StagePublishQueue
}

// Execute publishes the record to the stream.
func (p *QueuePublisher) Execute(ctx context.Context, rec record.Record) error {
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"unique_id": rec.UniqueID,
			"payload":   rec.Payload,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("stage: publish %q to stream %q: %w", rec.UniqueID, p.stream, err)
	}

	slog.DebugContext(ctx, "record published", "unique_id", rec.UniqueID, "stream", p.stream, "message_id", id)
	return nil
}
