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

// PropertyRepository reads property pricing and writes the availability flag.
type PropertyRepository struct {
	coll *mongo.Collection
}

// NewPropertyRepository creates a repository over the properties collection.
func NewPropertyRepository(database *mongo.Database) *PropertyRepository {
	return &PropertyRepository{coll: database.Collection(PropertiesCollection)}
}

// FindByID returns mongo.ErrNoDocuments when the property does not exist.
func (r *PropertyRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	var p models.Property
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert stores a new property. Listing management owns properties; this exists for seeding and tests.
func (r *PropertyRepository) Insert(ctx context.Context, p *models.Property) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.UpdatedAt = time.Now().UTC()
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

// SetAvailability writes the flag only if the stored version still equals expectedVersion, bumping
// the version on success. A stale version yields mongo.ErrNoDocuments.
// Documents written by the listing service may have no version field yet; they read as version 0.
func (r *PropertyRepository) SetAvailability(ctx context.Context, id primitive.ObjectID, expectedVersion int64, available bool) (*models.Property, error) {
	filter := bson.M{"_id": id, "version": expectedVersion}
	if expectedVersion == 0 {
		filter = bson.M{"_id": id, "$or": bson.A{
			bson.M{"version": int64(0)},
			bson.M{"version": bson.M{"$exists": false}},
		}}
	}
	update := bson.M{
		"$set": bson.M{"available": available, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Property
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
