package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"renthub/internal/models"
)

// EventLogQuery filters and pages the audit trail.
type EventLogQuery struct {
	EventType models.EventType
	Status    models.EventStatus
	UserRole  models.Role
	User      primitive.ObjectID
	Start     *time.Time
	End       *time.Time
	Page      int // 1-based
	Limit     int
}

func (q EventLogQuery) filter() bson.M {
	f := bson.M{}
	if q.EventType != "" {
		f["event_type"] = q.EventType
	}
	if q.Status != "" {
		f["status"] = q.Status
	}
	if q.UserRole != "" {
		f["user_role"] = q.UserRole
	}
	if !q.User.IsZero() {
		f["user"] = q.User
	}
	if r := createdRange(q.Start, q.End); r != nil {
		f["created_at"] = r
	}
	return f
}

func createdRange(start, end *time.Time) bson.M {
	if start == nil && end == nil {
		return nil
	}
	r := bson.M{}
	if start != nil {
		r["$gte"] = *start
	}
	if end != nil {
		r["$lte"] = *end
	}
	return r
}

// EventLogRepository stores audit events.
type EventLogRepository struct {
	coll *mongo.Collection
}

// NewEventLogRepository creates a repository over the event_logs collection.
func NewEventLogRepository(database *mongo.Database) *EventLogRepository {
	return &EventLogRepository{coll: database.Collection(EventLogsCollection)}
}

// Insert stores one event.
func (r *EventLogRepository) Insert(ctx context.Context, ev *models.EventLog) error {
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("failed to insert event log: %w", err)
	}
	return nil
}

// Find returns one page of matching events, newest first, and the total match count.
func (r *EventLogRepository) Find(ctx context.Context, q EventLogQuery) ([]models.EventLog, int64, error) {
	filter := q.filter()
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count event logs: %w", err)
	}

	opts := options.Find().SetSort(desc("created_at"))
	if q.Limit > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		opts.SetLimit(int64(q.Limit)).SetSkip(int64((page - 1) * q.Limit))
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find event logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.EventLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode event logs: %w", err)
	}
	return logs, total, nil
}

// Stats groups events in the window by type, status and role and includes the ten most recent.
func (r *EventLogRepository) Stats(ctx context.Context, start, end *time.Time) (*models.EventLogStats, error) {
	match := bson.M{}
	if rng := createdRange(start, end); rng != nil {
		match["created_at"] = rng
	}

	total, err := r.coll.CountDocuments(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to count event logs: %w", err)
	}
	stats := &models.EventLogStats{TotalEvents: total}

	groups := []struct {
		field string
		dst   *[]models.EventCount
	}{
		{"$event_type", &stats.EventsByType},
		{"$status", &stats.EventsByStatus},
		{"$user_role", &stats.EventsByRole},
	}
	for _, g := range groups {
		counts, err := r.countBy(ctx, match, g.field)
		if err != nil {
			return nil, err
		}
		*g.dst = counts
	}

	recent, _, err := r.Find(ctx, EventLogQuery{Start: start, End: end, Page: 1, Limit: 10})
	if err != nil {
		return nil, err
	}
	stats.RecentEvents = recent
	return stats, nil
}

func (r *EventLogRepository) countBy(ctx context.Context, match bson.M, field string) ([]models.EventCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: field}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate event logs by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	counts := []models.EventCount{}
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode event log counts: %w", err)
	}
	return counts, nil
}

// DeleteOlderThan removes events created before cutoff and returns how many were removed.
func (r *EventLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete event logs: %w", err)
	}
	return res.DeletedCount, nil
}
