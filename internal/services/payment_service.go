package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"renthub/internal/apperr"
	"renthub/internal/audit"
	"renthub/internal/db"
	"renthub/internal/models"
)

// ProofUpload is a proof file as received from the tenant.
type ProofUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SubmitPaymentInput carries a tenant's payment claim.
type SubmitPaymentInput struct {
	ApplicationID    primitive.ObjectID
	Amount           float64
	PaymentType      models.PaymentType   // defaults to deposit
	PaymentMethod    models.PaymentMethod // defaults to bank_transfer
	PaymentReference string
	TenantNotes      string
	Proof            *ProofUpload
}

// PaymentStats summarises payments per status.
type PaymentStats struct {
	ByStatus    []models.PaymentStatusStats `json:"by_status"`
	TotalCount  int64                       `json:"total_count"`
	TotalAmount decimal.Decimal             `json:"total_amount"`
	HeldAmount  decimal.Decimal             `json:"held_amount"`
}

// IPaymentService defines the escrow payment lifecycle.
type IPaymentService interface {
	Submit(ctx context.Context, actor models.Principal, in SubmitPaymentInput) (*models.Payment, error)
	Verify(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error)
	Release(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error)
	Reject(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error)
	Refund(ctx context.Context, actor models.Principal, id primitive.ObjectID, reason string) (*models.Payment, error)
	UpdateAdminNotes(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error)
	FindByID(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.Payment, error)
	ProofURL(ctx context.Context, actor models.Principal, id primitive.ObjectID) (string, error)
	ListForTenant(ctx context.Context, actor models.Principal) ([]models.Payment, error)
	ListForLandlord(ctx context.Context, actor models.Principal) ([]models.Payment, error)
	ListAll(ctx context.Context, actor models.Principal, status models.PaymentStatus) ([]models.Payment, error)
	Stats(ctx context.Context, actor models.Principal) (*PaymentStats, error)
}

// paymentService implements IPaymentService.
type paymentService struct {
	store    IPaymentStore
	apps     IApplicationStore
	gate     *PropertyGate
	proofs   IProofStorage
	recorder *audit.Recorder
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService. proofs may be nil when object storage is not configured,
// in which case only cash payments can be submitted.
func NewPaymentService(store IPaymentStore, apps IApplicationStore, gate *PropertyGate, proofs IProofStorage, recorder *audit.Recorder) IPaymentService {
	return &paymentService{
		store:    store,
		apps:     apps,
		gate:     gate,
		proofs:   proofs,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a pending payment against the tenant's approved application.
func (s *paymentService) Submit(ctx context.Context, actor models.Principal, in SubmitPaymentInput) (*models.Payment, error) {
	p, err := s.submit(ctx, actor, in)
	if err != nil {
		recordFailure(ctx, s.recorder, actor, models.EventPaymentSubmitted, models.TargetApplication, in.ApplicationID, err)
		return nil, err
	}

	ev := audit.NewEvent(actor, models.EventPaymentSubmitted, models.TargetPayment, p.ID, "Payment submitted for verification")
	ev.Metadata["application_id"] = p.Application.Hex()
	ev.Metadata["amount"] = p.Amount
	ev.Metadata["payment_type"] = string(p.PaymentType)
	ev.Metadata["payment_method"] = string(p.PaymentMethod)
	s.recorder.Record(ctx, ev)
	return p, nil
}

func (s *paymentService) submit(ctx context.Context, actor models.Principal, in SubmitPaymentInput) (*models.Payment, error) {
	if actor.Role != models.RoleTenant {
		return nil, apperr.New(apperr.KindForbidden, "only tenants can submit payments")
	}
	if in.PaymentType == "" {
		in.PaymentType = models.PaymentTypeDeposit
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentMethodBankTransfer
	}
	if !in.PaymentType.Valid() {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown payment type %q", in.PaymentType)
	}
	if !in.PaymentMethod.Valid() {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown payment method %q", in.PaymentMethod)
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "amount must be greater than zero")
	}

	app, err := s.apps.FindByID(ctx, in.ApplicationID)
	if err != nil {
		return nil, notFound(err, "application", in.ApplicationID)
	}
	// Someone else's application is reported the same way as an unapproved one.
	if app.Tenant != actor.UserID || app.Status != models.ApplicationApproved {
		return nil, apperr.New(apperr.KindApplicationNotApproved, "payment requires an approved application of your own")
	}
	if in.PaymentMethod != models.PaymentMethodCash && in.Proof == nil {
		return nil, apperr.ErrProofRequired
	}

	var proof *models.PaymentProof
	if in.Proof != nil {
		if s.proofs == nil {
			return nil, errors.New("payment proof storage is not configured")
		}
		proof, err = s.proofs.UploadPaymentProof(ctx, actor.UserID, in.Proof.Filename, in.Proof.ContentType, in.Proof.Size, in.Proof.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to store payment proof: %w", err)
		}
	}

	now := s.now()
	p := &models.Payment{
		ID:               primitive.NewObjectID(),
		Tenant:           actor.UserID,
		Landlord:         app.Landlord,
		Property:         app.Property,
		Application:      app.ID,
		Amount:           in.Amount,
		PaymentType:      in.PaymentType,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: strings.TrimSpace(in.PaymentReference),
		PaymentProof:     proof,
		Status:           models.PaymentPending,
		TenantNotes:      in.TenantNotes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		if proof != nil {
			s.discardProof(ctx, proof.Key)
		}
		return nil, err
	}
	return p, nil
}

// discardProof removes a proof that no payment references.
func (s *paymentService) discardProof(ctx context.Context, key string) {
	if err := s.proofs.DeletePaymentProof(ctx, key); err != nil {
		slog.Warn("orphaned payment proof", "key", key, "error", err)
	}
}

// Verify confirms the payment is genuine and moves the money into escrow.
func (s *paymentService) Verify(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
	p, err := s.adminTransition(ctx, actor, id, []models.PaymentStatus{models.PaymentPending},
		db.PaymentTransition{To: models.PaymentHeld, AdminNotes: notes})
	return s.finish(ctx, actor, models.EventPaymentVerified, id, p, err, "Payment verified and held in escrow")
}

// Release forwards escrowed money to the landlord. The property is (re)confirmed as rented.
func (s *paymentService) Release(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
	p, err := s.release(ctx, actor, id, notes)
	return s.finish(ctx, actor, models.EventPaymentReleased, id, p, err, "Payment released to landlord")
}

func (s *paymentService) release(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}
	if current.Status != models.PaymentHeld {
		return nil, invalidPaymentTransition(current.Status, models.PaymentReleased)
	}
	// Withdrawing first is harmless if the release below loses a race: the property was
	// already withdrawn by the approval that made this payment possible.
	if _, err := s.gate.EnsureWithdrawn(ctx, current.Property); err != nil {
		return nil, err
	}
	return s.adminTransition(ctx, actor, id, []models.PaymentStatus{models.PaymentHeld},
		db.PaymentTransition{To: models.PaymentReleased, AdminNotes: notes})
}

// Reject declines an unverified payment. Availability is left as is: the application stays approved,
// so the tenant can submit a corrected payment.
func (s *paymentService) Reject(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
	p, err := s.adminTransition(ctx, actor, id, []models.PaymentStatus{models.PaymentPending},
		db.PaymentTransition{To: models.PaymentRejected, AdminNotes: notes})
	return s.finish(ctx, actor, models.EventPaymentRejected, id, p, err, "Payment rejected")
}

// Refund returns a pending or escrowed payment to the tenant.
func (s *paymentService) Refund(ctx context.Context, actor models.Principal, id primitive.ObjectID, reason string) (*models.Payment, error) {
	var p *models.Payment
	var err error
	reason = strings.TrimSpace(reason)
	switch {
	case !actor.IsAdmin():
		err = apperr.New(apperr.KindForbidden, "admin access required")
	case reason == "":
		err = apperr.ErrReasonRequired
	default:
		p, err = s.adminTransition(ctx, actor, id, []models.PaymentStatus{models.PaymentPending, models.PaymentHeld},
			db.PaymentTransition{To: models.PaymentRefunded, RefundReason: reason})
	}
	return s.finish(ctx, actor, models.EventPaymentRefunded, id, p, err, "Payment refunded")
}

// UpdateAdminNotes is the one edit allowed in every status, including released.
func (s *paymentService) UpdateAdminNotes(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
	var p *models.Payment
	var err error
	if !actor.IsAdmin() {
		err = apperr.New(apperr.KindForbidden, "admin access required")
	} else if p, err = s.store.SetAdminNotes(ctx, id, notes, s.now()); err != nil {
		err = notFound(err, "payment", id)
	}
	return s.finish(ctx, actor, models.EventPaymentNotesUpdated, id, p, err, "Payment admin notes updated")
}

// adminTransition checks the admin capability and performs the conditional status write.
func (s *paymentService) adminTransition(ctx context.Context, actor models.Principal, id primitive.ObjectID, from []models.PaymentStatus, t db.PaymentTransition) (*models.Payment, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	t.At = s.now()
	t.By = actor.UserID

	p, err := s.store.Transition(ctx, id, from, t)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update payment %s: %w", id.Hex(), err)
	}

	current, checkErr := s.store.FindByID(ctx, id)
	if checkErr != nil {
		return nil, notFound(checkErr, "payment", id)
	}
	return nil, invalidPaymentTransition(current.Status, t.To)
}

func invalidPaymentTransition(from, to models.PaymentStatus) error {
	return apperr.New(apperr.KindInvalidTransition, "cannot move payment from %s to %s", from, to)
}

// finish records the outcome of an admin action and passes the result through.
func (s *paymentService) finish(ctx context.Context, actor models.Principal, eventType models.EventType, id primitive.ObjectID, p *models.Payment, err error, description string) (*models.Payment, error) {
	if err != nil {
		recordFailure(ctx, s.recorder, actor, eventType, models.TargetPayment, id, err)
		return nil, err
	}
	ev := audit.NewEvent(actor, eventType, models.TargetPayment, p.ID, description)
	ev.Metadata["status"] = string(p.Status)
	ev.Metadata["amount"] = p.Amount
	ev.Metadata["property_id"] = p.Property.Hex()
	if p.RefundReason != "" && eventType == models.EventPaymentRefunded {
		ev.Metadata["refund_reason"] = p.RefundReason
	}
	s.recorder.Record(ctx, ev)
	return p, nil
}

// FindByID returns the payment to its tenant, its landlord or an admin. Anyone else gets NotFound.
func (s *paymentService) FindByID(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.Payment, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}
	if !actor.IsAdmin() && p.Tenant != actor.UserID && p.Landlord != actor.UserID {
		return nil, apperr.New(apperr.KindNotFound, "payment %s not found", id.Hex())
	}
	return p, nil
}

// ProofURL returns a short-lived download link for the proof, for the paying tenant or an admin.
func (s *paymentService) ProofURL(ctx context.Context, actor models.Principal, id primitive.ObjectID) (string, error) {
	p, err := s.FindByID(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if !actor.IsAdmin() && p.Tenant != actor.UserID {
		return "", apperr.New(apperr.KindForbidden, "only the paying tenant or an admin can view the proof")
	}
	if p.PaymentProof == nil || s.proofs == nil {
		return "", apperr.New(apperr.KindNotFound, "payment %s has no proof attached", id.Hex())
	}
	return s.proofs.PresignProofURL(ctx, p.PaymentProof.Key)
}

// ListForTenant returns the payments the actor has submitted.
func (s *paymentService) ListForTenant(ctx context.Context, actor models.Principal) ([]models.Payment, error) {
	return s.store.List(ctx, db.PaymentQuery{Tenant: actor.UserID})
}

// ListForLandlord returns payments made towards the actor's properties.
func (s *paymentService) ListForLandlord(ctx context.Context, actor models.Principal) ([]models.Payment, error) {
	return s.store.List(ctx, db.PaymentQuery{Landlord: actor.UserID})
}

// ListAll returns every payment, optionally filtered by status. Admin only.
func (s *paymentService) ListAll(ctx context.Context, actor models.Principal, status models.PaymentStatus) ([]models.Payment, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	return s.store.List(ctx, db.PaymentQuery{Status: status})
}

// Stats aggregates counts and amounts per status. Sums are re-added as decimals to avoid float drift.
func (s *paymentService) Stats(ctx context.Context, actor models.Principal) (*PaymentStats, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	rows, err := s.store.StatsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &PaymentStats{ByStatus: rows, TotalAmount: decimal.Zero, HeldAmount: decimal.Zero}
	for _, r := range rows {
		amount := decimal.NewFromFloat(r.TotalAmount)
		stats.TotalCount += r.Count
		stats.TotalAmount = stats.TotalAmount.Add(amount)
		if r.Status == models.PaymentHeld {
			stats.HeldAmount = amount
		}
	}
	return stats, nil
}
