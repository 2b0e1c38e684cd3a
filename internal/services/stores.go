package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"renthub/internal/apperr"
	"renthub/internal/db"
	"renthub/internal/models"
)

// IPropertyStore is the slice of property persistence the rental core needs.
type IPropertyStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	SetAvailability(ctx context.Context, id primitive.ObjectID, expectedVersion int64, available bool) (*models.Property, error)
}

// IApplicationStore persists rental applications. Transition must be a single conditional write.
type IApplicationStore interface {
	Insert(ctx context.Context, app *models.RentalApplication) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.RentalApplication, error)
	Exists(ctx context.Context, q db.ApplicationQuery) (bool, error)
	Transition(ctx context.Context, id primitive.ObjectID, from, to models.ApplicationStatus, at time.Time) (*models.RentalApplication, error)
	List(ctx context.Context, q db.ApplicationQuery) ([]models.RentalApplication, error)
	CloseOut(ctx context.Context, tenant, property primitive.ObjectID, at time.Time) (*models.RentalApplication, error)
	ReopenTenancy(ctx context.Context, id primitive.ObjectID) error
}

// IPaymentStore persists payments. Transition must be a single conditional write.
type IPaymentStore interface {
	Insert(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	Transition(ctx context.Context, id primitive.ObjectID, from []models.PaymentStatus, t db.PaymentTransition) (*models.Payment, error)
	SetAdminNotes(ctx context.Context, id primitive.ObjectID, notes string, at time.Time) (*models.Payment, error)
	List(ctx context.Context, q db.PaymentQuery) ([]models.Payment, error)
	StatsByStatus(ctx context.Context) ([]models.PaymentStatusStats, error)
}

// IEventLogStore queries and prunes the audit trail.
type IEventLogStore interface {
	Find(ctx context.Context, q db.EventLogQuery) ([]models.EventLog, int64, error)
	Stats(ctx context.Context, start, end *time.Time) (*models.EventLogStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// IProofStorage keeps payment proof files. storage.S3Storage satisfies it.
type IProofStorage interface {
	UploadPaymentProof(ctx context.Context, tenantID primitive.ObjectID, filename, contentType string, size int64, body io.Reader) (*models.PaymentProof, error)
	PresignProofURL(ctx context.Context, key string) (string, error)
	DeletePaymentProof(ctx context.Context, key string) error
}

// notFound maps a missing document onto the NotFound kind and wraps anything else.
func notFound(err error, what string, id primitive.ObjectID) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.New(apperr.KindNotFound, "%s %s not found", what, id.Hex())
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id.Hex(), err)
}
