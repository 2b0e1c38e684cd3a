package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"renthub/internal/models"
)

// TaskType defines the type of a background task.
const (
	TypeAuditRecord   = "audit:record"
	TypeEventLogPurge = "eventlog:purge"
)

const (
	QueueAudit       = "audit"
	QueueMaintenance = "maintenance"
)

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// --- Task Client (Enqueuing tasks) ---

// Client enqueues background work. It satisfies audit.EventEnqueuer.
type Client struct {
	client *asynq.Client
}

func NewClient(rdb *redis.Client) *Client {
	return &Client{client: asynq.NewClient(redisOpt(rdb))}
}

// EnqueueAuditEvent hands an event to the audit worker.
func (c *Client) EnqueueAuditEvent(ctx context.Context, ev *models.EventLog) error {
	task, err := NewAuditRecordTask(ev)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue audit event %s: %w", ev.EventType, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// NewAuditRecordTask builds the task carrying ev.
func NewAuditRecordTask(ev *models.EventLog) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit event: %w", err)
	}
	return asynq.NewTask(TypeAuditRecord, payload, asynq.Queue(QueueAudit), asynq.MaxRetry(5)), nil
}

// EventLogPurgePayload carries the retention window of a purge run.
type EventLogPurgePayload struct {
	Days int `json:"days"`
}

func NewEventLogPurgeTask(days int) (*asynq.Task, error) {
	payload, err := json.Marshal(EventLogPurgePayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEventLogPurge, payload, asynq.Queue(QueueMaintenance), asynq.MaxRetry(2)), nil
}

// --- Task Server (Processing tasks) ---

// EventStore is what the background handlers write to.
type EventStore interface {
	Insert(ctx context.Context, ev *models.EventLog) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	events EventStore
	now    func() time.Time
}

func NewTaskProcessor(events EventStore) *TaskProcessor {
	return &TaskProcessor{events: events, now: func() time.Time { return time.Now().UTC() }}
}

// SetupServer configures an Asynq server and its mux. The caller starts and stops it.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				QueueAudit:       6,
				"default":        3,
				QueueMaintenance: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				slog.Error("background task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAuditRecord, processor.HandleAuditRecordTask)
	mux.HandleFunc(TypeEventLogPurge, processor.HandleEventLogPurgeTask)
	return srv, mux
}

// NewScheduler registers the daily event log purge.
func NewScheduler(rdb *redis.Client, retentionDays int) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{Location: time.UTC})
	task, err := NewEventLogPurgeTask(retentionDays)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register("@daily", task); err != nil {
		return nil, fmt.Errorf("failed to schedule event log purge: %w", err)
	}
	return scheduler, nil
}

// --- Task Handlers ---

// HandleAuditRecordTask persists a queued audit event.
func (p *TaskProcessor) HandleAuditRecordTask(ctx context.Context, t *asynq.Task) error {
	var ev models.EventLog
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("failed to unmarshal audit payload: %v: %w", err, asynq.SkipRetry)
	}
	if ev.EventType == "" {
		return fmt.Errorf("audit payload has no event type: %w", asynq.SkipRetry)
	}
	if err := p.events.Insert(ctx, &ev); err != nil {
		return fmt.Errorf("failed to store audit event %s: %w", ev.EventType, err)
	}
	return nil
}

// HandleEventLogPurgeTask deletes events older than the payload's retention window.
func (p *TaskProcessor) HandleEventLogPurgeTask(ctx context.Context, t *asynq.Task) error {
	var payload EventLogPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal purge payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Days < 1 {
		return fmt.Errorf("invalid retention of %d days: %w", payload.Days, asynq.SkipRetry)
	}

	cutoff := p.now().AddDate(0, 0, -payload.Days)
	n, err := p.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge event logs: %w", err)
	}
	slog.Info("purged event logs", "deleted", n, "cutoff", cutoff)
	return nil
}
