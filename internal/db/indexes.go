package db

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"renthub/internal/models"
)

// PendingApplicationIndex backs the one-pending-application-per-tenant-and-property rule.
const PendingApplicationIndex = "uniq_pending_application"

func desc(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}

// EnsureIndexes creates the indexes the services rely on. It is safe to run repeatedly.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		ApplicationsCollection: {
			{
				Keys: bson.D{{Key: "property", Value: 1}, {Key: "tenant", Value: 1}},
				Options: options.Index().
					SetName(PendingApplicationIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": models.ApplicationPending}),
			},
			{Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "landlord", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "property", Value: 1}, {Key: "status", Value: 1}}},
		},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "landlord", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "application", Value: 1}}},
		},
		EventLogsCollection: {
			{Keys: desc("created_at")},
			{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "target_type", Value: 1}, {Key: "target_id", Value: 1}}},
		},
	}

	for coll, idx := range specs {
		names, err := database.Collection(coll).Indexes().CreateMany(ctx, idx)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
		slog.Info("indexes ensured", "collection", coll, "indexes", names)
	}
	return nil
}
