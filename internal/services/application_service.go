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

// SubmitApplicationInput carries what a tenant provides when applying.
type SubmitApplicationInput struct {
	PropertyID    primitive.ObjectID
	MoveInDate    time.Time
	LeaseDuration int // months
	Message       string
	TenantInfo    models.TenantInfo
}

// IApplicationService defines the rental application lifecycle.
type IApplicationService interface {
	Submit(ctx context.Context, actor models.Principal, in SubmitApplicationInput) (*models.RentalApplication, error)
	Approve(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error)
	Reject(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error)
	Cancel(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error)
	FindByID(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error)
	ListForTenant(ctx context.Context, actor models.Principal) ([]models.RentalApplication, error)
	ListForLandlord(ctx context.Context, actor models.Principal) ([]models.RentalApplication, error)
	ListAll(ctx context.Context, actor models.Principal, status models.ApplicationStatus) ([]models.RentalApplication, error)
}

// applicationService implements IApplicationService.
type applicationService struct {
	store    IApplicationStore
	gate     *PropertyGate
	recorder *audit.Recorder
	now      func() time.Time
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(store IApplicationStore, gate *PropertyGate, recorder *audit.Recorder) IApplicationService {
	return &applicationService{
		store:    store,
		gate:     gate,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit creates a pending application for an available property.
func (s *applicationService) Submit(ctx context.Context, actor models.Principal, in SubmitApplicationInput) (*models.RentalApplication, error) {
	app, err := s.submit(ctx, actor, in)
	if err != nil {
		s.recordFailure(ctx, actor, models.EventApplicationSubmitted, in.PropertyID, models.TargetProperty, err)
		return nil, err
	}

	ev := audit.NewEvent(actor, models.EventApplicationSubmitted, models.TargetApplication, app.ID, "Rental application submitted")
	ev.Metadata["property_id"] = app.Property.Hex()
	ev.Metadata["landlord_id"] = app.Landlord.Hex()
	ev.Metadata["lease_duration"] = app.LeaseDuration
	s.recorder.Record(ctx, ev)
	return app, nil
}

func (s *applicationService) submit(ctx context.Context, actor models.Principal, in SubmitApplicationInput) (*models.RentalApplication, error) {
	if actor.Role != models.RoleTenant {
		return nil, apperr.New(apperr.KindForbidden, "only tenants can apply for properties")
	}
	if in.MoveInDate.IsZero() {
		return nil, apperr.New(apperr.KindInvalidInput, "move-in date is required")
	}
	if in.LeaseDuration < 1 {
		return nil, apperr.New(apperr.KindInvalidInput, "lease duration must be at least 1 month")
	}

	property, err := s.gate.Lookup(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.Available {
		return nil, apperr.New(apperr.KindPropertyUnavailable, "property %s is not available for rent", property.ID.Hex())
	}

	pending, err := s.store.Exists(ctx, db.ApplicationQuery{Tenant: actor.UserID, Property: property.ID, Status: models.ApplicationPending})
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperr.ErrDuplicatePendingApplication
	}

	now := s.now()
	app := &models.RentalApplication{
		ID:            primitive.NewObjectID(),
		Property:      property.ID,
		Tenant:        actor.UserID,
		Landlord:      property.Owner,
		Status:        models.ApplicationPending,
		MoveInDate:    in.MoveInDate.UTC(),
		LeaseDuration: in.LeaseDuration,
		Message:       in.Message,
		TenantInfo:    in.TenantInfo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Insert(ctx, app); err != nil {
		// Lost a race with a concurrent submit; the partial unique index caught it.
		if db.IsMongoDuplicateKeyError(err) {
			return nil, apperr.ErrDuplicatePendingApplication
		}
		return nil, err
	}
	return app, nil
}

// Approve accepts a pending application and withdraws the property. Approval requires the property to
// still be available, so at most one application per property can be approved at a time.
func (s *applicationService) Approve(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	app, err := s.approve(ctx, actor, id)
	if err != nil {
		s.recordFailure(ctx, actor, models.EventApplicationApproved, id, models.TargetApplication, err)
		return nil, err
	}

	ev := audit.NewEvent(actor, models.EventApplicationApproved, models.TargetApplication, app.ID, "Rental application approved")
	ev.Metadata["property_id"] = app.Property.Hex()
	ev.Metadata["tenant_id"] = app.Tenant.Hex()
	s.recorder.Record(ctx, ev)
	return app, nil
}

func (s *applicationService) approve(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	app, err := s.loadForLandlord(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	withdrawn, err := s.gate.Withdraw(ctx, app.Property)
	if err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, id, models.ApplicationApproved)
	if err != nil {
		if undoErr := s.gate.Undo(ctx, withdrawn); undoErr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to restore property %s: %w", withdrawn.ID.Hex(), undoErr))
		}
		return nil, err
	}
	return updated, nil
}

// Reject declines a pending application. The property is not touched.
func (s *applicationService) Reject(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	app, err := s.loadForLandlord(ctx, actor, id)
	if err == nil {
		app, err = s.transition(ctx, id, models.ApplicationRejected)
	}
	if err != nil {
		s.recordFailure(ctx, actor, models.EventApplicationRejected, id, models.TargetApplication, err)
		return nil, err
	}

	ev := audit.NewEvent(actor, models.EventApplicationRejected, models.TargetApplication, app.ID, "Rental application rejected")
	ev.Metadata["property_id"] = app.Property.Hex()
	ev.Metadata["tenant_id"] = app.Tenant.Hex()
	s.recorder.Record(ctx, ev)
	return app, nil
}

// Cancel withdraws a tenant's own pending application.
func (s *applicationService) Cancel(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	app, err := s.cancel(ctx, actor, id)
	if err != nil {
		s.recordFailure(ctx, actor, models.EventApplicationCancelled, id, models.TargetApplication, err)
		return nil, err
	}

	ev := audit.NewEvent(actor, models.EventApplicationCancelled, models.TargetApplication, app.ID, "Rental application cancelled by tenant")
	ev.Metadata["property_id"] = app.Property.Hex()
	s.recorder.Record(ctx, ev)
	return app, nil
}

func (s *applicationService) cancel(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "application", id)
	}
	if app.Tenant != actor.UserID {
		return nil, apperr.New(apperr.KindNotOwner, "application %s does not belong to you", id.Hex())
	}
	if app.Status != models.ApplicationPending {
		return nil, invalidApplicationTransition(app.Status, models.ApplicationCancelled)
	}
	return s.transition(ctx, id, models.ApplicationCancelled)
}

// loadForLandlord applies the owner and state guards shared by approve and reject.
func (s *applicationService) loadForLandlord(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "application", id)
	}
	if app.Landlord != actor.UserID {
		return nil, apperr.New(apperr.KindNotOwner, "application %s is for a property you do not own", id.Hex())
	}
	if app.Status != models.ApplicationPending {
		return nil, apperr.New(apperr.KindInvalidTransition, "application is already %s", app.Status)
	}
	return app, nil
}

// transition performs the conditional pending -> to write. When it matches nothing, the document
// is re-read to report why.
func (s *applicationService) transition(ctx context.Context, id primitive.ObjectID, to models.ApplicationStatus) (*models.RentalApplication, error) {
	app, err := s.store.Transition(ctx, id, models.ApplicationPending, to, s.now())
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update application %s: %w", id.Hex(), err)
	}

	current, checkErr := s.store.FindByID(ctx, id)
	if checkErr != nil {
		return nil, notFound(checkErr, "application", id)
	}
	return nil, invalidApplicationTransition(current.Status, to)
}

func invalidApplicationTransition(from, to models.ApplicationStatus) error {
	return apperr.New(apperr.KindInvalidTransition, "cannot move application from %s to %s", from, to)
}

// FindByID returns the application to its tenant, its landlord or an admin. Anyone else gets NotFound.
func (s *applicationService) FindByID(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "application", id)
	}
	if !actor.IsAdmin() && app.Tenant != actor.UserID && app.Landlord != actor.UserID {
		return nil, apperr.New(apperr.KindNotFound, "application %s not found", id.Hex())
	}
	return app, nil
}

// ListForTenant returns the actor's own applications, newest first.
func (s *applicationService) ListForTenant(ctx context.Context, actor models.Principal) ([]models.RentalApplication, error) {
	return s.store.List(ctx, db.ApplicationQuery{Tenant: actor.UserID})
}

// ListForLandlord returns applications received for the actor's properties.
func (s *applicationService) ListForLandlord(ctx context.Context, actor models.Principal) ([]models.RentalApplication, error) {
	return s.store.List(ctx, db.ApplicationQuery{Landlord: actor.UserID})
}

// ListAll returns every application, optionally filtered by status. Admin only.
func (s *applicationService) ListAll(ctx context.Context, actor models.Principal, status models.ApplicationStatus) ([]models.RentalApplication, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	return s.store.List(ctx, db.ApplicationQuery{Status: status})
}

func (s *applicationService) recordFailure(ctx context.Context, actor models.Principal, eventType models.EventType, targetID primitive.ObjectID, target models.TargetType, err error) {
	recordFailure(ctx, s.recorder, actor, eventType, target, targetID, err)
}

// recordFailure logs a rejected attempt so the audit trail shows failures as well as transitions.
func recordFailure(ctx context.Context, rec *audit.Recorder, actor models.Principal, eventType models.EventType, target models.TargetType, targetID primitive.ObjectID, err error) {
	ev := audit.NewEvent(actor, eventType, target, targetID, err.Error())
	ev.Status = models.EventFailure
	ev.Metadata["error_kind"] = string(apperr.KindOf(err))
	rec.Record(ctx, ev)
}
