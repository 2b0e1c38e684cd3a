package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"renthub/internal/apperr"
	"renthub/internal/audit"
	"renthub/internal/db"
	"renthub/internal/models"
)

// IAvailabilityService is the hook the review subsystem calls when a stay is closed out.
type IAvailabilityService interface {
	ReviewEligibility(ctx context.Context, actor models.Principal, propertyID primitive.ObjectID) (bool, error)
	MarkAvailableAfterReview(ctx context.Context, actor models.Principal, propertyID primitive.ObjectID) (*models.Property, error)
}

type availabilityService struct {
	apps     IApplicationStore
	gate     *PropertyGate
	recorder *audit.Recorder
	now      func() time.Time
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(apps IApplicationStore, gate *PropertyGate, recorder *audit.Recorder) IAvailabilityService {
	return &availabilityService{
		apps:     apps,
		gate:     gate,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ReviewEligibility reports whether the tenant has an approved application for the property whose
// stay has not been closed out yet.
func (s *availabilityService) ReviewEligibility(ctx context.Context, actor models.Principal, propertyID primitive.ObjectID) (bool, error) {
	return s.apps.Exists(ctx, db.ApplicationQuery{
		Tenant:   actor.UserID,
		Property: propertyID,
		Status:   models.ApplicationApproved,
		OpenOnly: true,
	})
}

// MarkAvailableAfterReview relists the property once its tenant has reviewed the stay. Each approved
// application can relist its property once.
func (s *availabilityService) MarkAvailableAfterReview(ctx context.Context, actor models.Principal, propertyID primitive.ObjectID) (*models.Property, error) {
	p, app, err := s.markAvailable(ctx, actor, propertyID)
	if err != nil {
		recordFailure(ctx, s.recorder, actor, models.EventPropertyMarkedAvailable, models.TargetProperty, propertyID, err)
		return nil, err
	}
	ev := audit.NewEvent(actor, models.EventPropertyMarkedAvailable, models.TargetProperty, p.ID, "Property relisted after tenant review")
	ev.Metadata["version"] = p.Version
	ev.Metadata["application_id"] = app.ID.Hex()
	s.recorder.Record(ctx, ev)
	return p, nil
}

func (s *availabilityService) markAvailable(ctx context.Context, actor models.Principal, propertyID primitive.ObjectID) (*models.Property, *models.RentalApplication, error) {
	app, err := s.apps.CloseOut(ctx, actor.UserID, propertyID, s.now())
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, s.whyNotOpen(ctx, actor, propertyID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to close out stay at property %s: %w", propertyID.Hex(), err)
	}

	p, err := s.gate.Restore(ctx, propertyID)
	if err != nil {
		if reopenErr := s.apps.ReopenTenancy(ctx, app.ID); reopenErr != nil {
			return nil, nil, errors.Join(err, fmt.Errorf("failed to reopen application %s: %w", app.ID.Hex(), reopenErr))
		}
		return nil, nil, err
	}
	return p, app, nil
}

// whyNotOpen tells a tenant who never had an approved application apart from one whose stay is already closed.
func (s *availabilityService) whyNotOpen(ctx context.Context, actor models.Principal, propertyID primitive.ObjectID) error {
	approved, err := s.apps.Exists(ctx, db.ApplicationQuery{Tenant: actor.UserID, Property: propertyID, Status: models.ApplicationApproved})
	if err != nil {
		return err
	}
	if approved {
		return apperr.New(apperr.KindInvalidTransition, "your stay at property %s is already closed out", propertyID.Hex())
	}
	return apperr.New(apperr.KindForbidden, "you can only close out properties you have an approved application for")
}
