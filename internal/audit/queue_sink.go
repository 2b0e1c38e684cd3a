package audit

import (
	"context"

	"renthub/internal/models"
)

// EventEnqueuer hands an event to the background queue. tasks.Client satisfies it.
type EventEnqueuer interface {
	EnqueueAuditEvent(ctx context.Context, ev *models.EventLog) error
}

// QueueSink defers the database write to the background worker.
type QueueSink struct {
	queue EventEnqueuer
}

func NewQueueSink(queue EventEnqueuer) *QueueSink {
	return &QueueSink{queue: queue}
}

func (s *QueueSink) Record(ctx context.Context, ev *models.EventLog) error {
	return s.queue.EnqueueAuditEvent(ctx, ev)
}
