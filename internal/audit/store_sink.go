package audit

import (
	"context"

	"renthub/internal/models"
)

// EventInserter persists one event. db.EventLogRepository satisfies it.
type EventInserter interface {
	Insert(ctx context.Context, ev *models.EventLog) error
}

// StoreSink writes events straight to the event log collection.
type StoreSink struct {
	store EventInserter
}

func NewStoreSink(store EventInserter) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Record(ctx context.Context, ev *models.EventLog) error {
	return s.store.Insert(ctx, ev)
}
