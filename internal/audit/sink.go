// Package audit records state transitions to the event log. Recording is best effort: a failing sink
// is logged and otherwise ignored.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/models"
)

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, ev *models.EventLog) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev *models.EventLog) error

func (f SinkFunc) Record(ctx context.Context, ev *models.EventLog) error { return f(ctx, ev) }

// Recorder hands events to a Sink and never lets its failure reach the caller.
type Recorder struct {
	sink Sink
	now  func() time.Time
}

// NewRecorder wraps sink. A nil sink discards events.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, now: func() time.Time { return time.Now().UTC() }}
}

// Record stamps and delivers ev. Errors and panics from the sink are logged and dropped.
func (r *Recorder) Record(ctx context.Context, ev *models.EventLog) {
	if r == nil || r.sink == nil || ev == nil {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.now()
	}
	if ev.Status == "" {
		ev.Status = models.EventSuccess
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("audit sink panicked", "event_type", ev.EventType, "panic", fmt.Sprint(p))
		}
	}()
	if err := r.sink.Record(ctx, ev); err != nil {
		slog.Warn("failed to record audit event", "event_type", ev.EventType, "target_id", ev.TargetID.Hex(), "err", err)
	}
}

// NewEvent builds an event attributed to actor.
func NewEvent(actor models.Principal, eventType models.EventType, target models.TargetType, targetID primitive.ObjectID, description string) *models.EventLog {
	return &models.EventLog{
		EventType:   eventType,
		User:        actor.UserID,
		UserEmail:   actor.Email,
		UserRole:    actor.Role,
		TargetType:  target,
		TargetID:    targetID,
		Description: description,
		Metadata:    map[string]any{},
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
		Status:      models.EventSuccess,
	}
}
