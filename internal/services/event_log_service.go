package services

import (
	"context"
	"time"

	"renthub/internal/apperr"
	"renthub/internal/db"
	"renthub/internal/models"
)

const (
	defaultEventPageSize    = 50
	defaultActivityPageSize = 20
	maxEventPageSize        = 200
	DefaultEventRetention   = 90 // days
)

// EventLogPage is one page of audit events.
type EventLogPage struct {
	Logs  []models.EventLog `json:"logs"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Total int64             `json:"total"`
	Pages int64             `json:"pages"`
}

// IEventLogService exposes the audit trail.
type IEventLogService interface {
	List(ctx context.Context, actor models.Principal, q db.EventLogQuery) (*EventLogPage, error)
	Stats(ctx context.Context, actor models.Principal, start, end *time.Time) (*models.EventLogStats, error)
	MyActivity(ctx context.Context, actor models.Principal, page, limit int) (*EventLogPage, error)
	PurgeOlderThan(ctx context.Context, actor models.Principal, days int) (int64, error)
}

type eventLogService struct {
	store IEventLogStore
	now   func() time.Time
}

// NewEventLogService creates a new EventLogService.
func NewEventLogService(store IEventLogStore) IEventLogService {
	return &eventLogService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func requireAdmin(actor models.Principal) error {
	if !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "admin access required")
	}
	return nil
}

func (s *eventLogService) List(ctx context.Context, actor models.Principal, q db.EventLogQuery) (*EventLogPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.page(ctx, q, defaultEventPageSize)
}

func (s *eventLogService) Stats(ctx context.Context, actor models.Principal, start, end *time.Time) (*models.EventLogStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Stats(ctx, start, end)
}

// MyActivity pages through the caller's own events.
func (s *eventLogService) MyActivity(ctx context.Context, actor models.Principal, page, limit int) (*EventLogPage, error) {
	return s.page(ctx, db.EventLogQuery{User: actor.UserID, Page: page, Limit: limit}, defaultActivityPageSize)
}

func (s *eventLogService) page(ctx context.Context, q db.EventLogQuery, defaultLimit int) (*EventLogPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxEventPageSize {
		q.Limit = maxEventPageSize
	}
	logs, total, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	limit := int64(q.Limit)
	return &EventLogPage{
		Logs:  logs,
		Page:  q.Page,
		Limit: q.Limit,
		Total: total,
		Pages: (total + limit - 1) / limit,
	}, nil
}

// PurgeOlderThan deletes events older than the given number of days.
func (s *eventLogService) PurgeOlderThan(ctx context.Context, actor models.Principal, days int) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	if days < 1 {
		return 0, apperr.New(apperr.KindInvalidInput, "days must be at least 1")
	}
	return s.store.DeleteOlderThan(ctx, s.now().AddDate(0, 0, -days))
}
