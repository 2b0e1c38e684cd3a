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

// PaymentQuery narrows payment listings. Zero fields are ignored.
type PaymentQuery struct {
	Tenant   primitive.ObjectID
	Landlord primitive.ObjectID
	Status   models.PaymentStatus
}

func (q PaymentQuery) filter() bson.M {
	f := bson.M{}
	if !q.Tenant.IsZero() {
		f["tenant"] = q.Tenant
	}
	if !q.Landlord.IsZero() {
		f["landlord"] = q.Landlord
	}
	if q.Status != "" {
		f["status"] = q.Status
	}
	return f
}

// PaymentTransition describes one admin status change.
type PaymentTransition struct {
	To           models.PaymentStatus
	At           time.Time
	By           primitive.ObjectID
	AdminNotes   string // only written when non-empty
	RefundReason string
}

// Set returns the fields the transition writes. In-memory stores apply the same fields.
func (t PaymentTransition) Set() bson.M {
	set := bson.M{"status": t.To, "updated_at": t.At}
	switch t.To {
	case models.PaymentHeld:
		set["verified_at"] = t.At
		set["verified_by"] = t.By
	case models.PaymentReleased:
		set["released_at"] = t.At
		set["released_by"] = t.By
	case models.PaymentRefunded:
		set["refunded_at"] = t.At
		set["refunded_by"] = t.By
		set["refund_reason"] = t.RefundReason
	}
	if t.AdminNotes != "" {
		set["admin_notes"] = t.AdminNotes
	}
	return set
}

// PaymentRepository persists payments. Payments are never deleted.
type PaymentRepository struct {
	coll *mongo.Collection
}

// NewPaymentRepository creates a repository over the payments collection.
func NewPaymentRepository(database *mongo.Database) *PaymentRepository {
	return &PaymentRepository{coll: database.Collection(PaymentsCollection)}
}

// Insert stores a new payment.
func (r *PaymentRepository) Insert(ctx context.Context, p *models.Payment) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// FindByID returns mongo.ErrNoDocuments when the payment does not exist.
func (r *PaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var p models.Payment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Transition applies t only while the payment is in one of the from statuses.
// Otherwise nothing changes and mongo.ErrNoDocuments is returned.
func (r *PaymentRepository) Transition(ctx context.Context, id primitive.ObjectID, from []models.PaymentStatus, t PaymentTransition) (*models.Payment, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Payment
	if err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": t.Set()}, opts).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetAdminNotes overwrites the admin notes in any status.
func (r *PaymentRepository) SetAdminNotes(ctx context.Context, id primitive.ObjectID, notes string, at time.Time) (*models.Payment, error) {
	update := bson.M{"$set": bson.M{"admin_notes": notes, "updated_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Payment
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns matching payments, newest first.
func (r *PaymentRepository) List(ctx context.Context, q PaymentQuery) ([]models.Payment, error) {
	cursor, err := r.coll.Find(ctx, q.filter(), options.Find().SetSort(desc("created_at")))
	if err != nil {
		return nil, fmt.Errorf("failed to find payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []models.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}

// StatsByStatus counts payments and sums their amounts per status.
func (r *PaymentRepository) StatsByStatus(ctx context.Context) ([]models.PaymentStatusStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_amount", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payment stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := []models.PaymentStatusStats{}
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode payment stats: %w", err)
	}
	return stats, nil
}
