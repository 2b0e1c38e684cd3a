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

// ApplicationQuery narrows application listings. Zero fields are ignored.
type ApplicationQuery struct {
	Tenant   primitive.ObjectID
	Landlord primitive.ObjectID
	Property primitive.ObjectID
	Status   models.ApplicationStatus
	// OpenOnly keeps applications whose stay has not been closed out.
	OpenOnly bool
}

func (q ApplicationQuery) filter() bson.M {
	f := bson.M{}
	if !q.Tenant.IsZero() {
		f["tenant"] = q.Tenant
	}
	if !q.Landlord.IsZero() {
		f["landlord"] = q.Landlord
	}
	if !q.Property.IsZero() {
		f["property"] = q.Property
	}
	if q.Status != "" {
		f["status"] = q.Status
	}
	if q.OpenOnly {
		f["closed_out_at"] = bson.M{"$exists": false}
	}
	return f
}

// ApplicationRepository persists rental applications.
type ApplicationRepository struct {
	coll *mongo.Collection
}

// NewApplicationRepository creates a repository over the applications collection.
func NewApplicationRepository(database *mongo.Database) *ApplicationRepository {
	return &ApplicationRepository{coll: database.Collection(ApplicationsCollection)}
}

// Insert stores a new application. A second pending application for the same tenant and property
// violates PendingApplicationIndex and comes back as a duplicate key error.
func (r *ApplicationRepository) Insert(ctx context.Context, app *models.RentalApplication) error {
	if app.ID.IsZero() {
		app.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, app); err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// FindByID returns mongo.ErrNoDocuments when the application does not exist.
func (r *ApplicationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.RentalApplication, error) {
	var app models.RentalApplication
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Exists reports whether any application matches q.
func (r *ApplicationRepository) Exists(ctx context.Context, q ApplicationQuery) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, q.filter(), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count applications: %w", err)
	}
	return n > 0, nil
}

// Transition moves the application from one status to another in a single conditional write.
// If the stored status is not from, nothing changes and mongo.ErrNoDocuments is returned.
func (r *ApplicationRepository) Transition(ctx context.Context, id primitive.ObjectID, from, to models.ApplicationStatus, at time.Time) (*models.RentalApplication, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var app models.RentalApplication
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&app); err != nil {
		return nil, err
	}
	return &app, nil
}

// CloseOut stamps the tenant's open approved application for the property as closed out. It can
// succeed once per application; when there is nothing open to close, mongo.ErrNoDocuments is returned.
func (r *ApplicationRepository) CloseOut(ctx context.Context, tenant, property primitive.ObjectID, at time.Time) (*models.RentalApplication, error) {
	filter := bson.M{
		"tenant":        tenant,
		"property":      property,
		"status":        models.ApplicationApproved,
		"closed_out_at": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"closed_out_at": at, "updated_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var app models.RentalApplication
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&app); err != nil {
		return nil, err
	}
	return &app, nil
}

// ReopenTenancy clears a close-out, used when relisting the property failed afterwards.
func (r *ApplicationRepository) ReopenTenancy(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id, "closed_out_at": bson.M{"$exists": true}}
	update := bson.M{"$unset": bson.M{"closed_out_at": ""}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reopen application %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// List returns matching applications, newest first.
func (r *ApplicationRepository) List(ctx context.Context, q ApplicationQuery) ([]models.RentalApplication, error) {
	opts := options.Find().SetSort(desc("created_at"))
	cursor, err := r.coll.Find(ctx, q.filter(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find applications: %w", err)
	}
	defer cursor.Close(ctx)

	apps := []models.RentalApplication{}
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, fmt.Errorf("failed to decode applications: %w", err)
	}
	return apps, nil
}
