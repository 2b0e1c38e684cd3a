package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"renthub/internal/audit"
	"renthub/internal/db"
	"renthub/internal/models"
)

// memProperties mirrors PropertyRepository, including the version guard.
type memProperties struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Property
	// beforeWrite runs inside SetAvailability before the version check, to simulate a racing writer.
	beforeWrite func(p *models.Property)
}

func newMemProperties() *memProperties {
	return &memProperties{byID: map[primitive.ObjectID]models.Property{}}
}

func (m *memProperties) add(p models.Property) models.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.byID[p.ID] = p
	return p
}

func (m *memProperties) get(id primitive.ObjectID) models.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func (m *memProperties) FindByID(_ context.Context, id primitive.ObjectID) (*models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &p, nil
}

func (m *memProperties) SetAvailability(_ context.Context, id primitive.ObjectID, expectedVersion int64, available bool) (*models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if m.beforeWrite != nil {
		hook := m.beforeWrite
		m.beforeWrite = nil
		hook(&p)
		m.byID[id] = p
	}
	if p.Version != expectedVersion {
		return nil, mongo.ErrNoDocuments
	}
	p.Available = available
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	m.byID[id] = p
	return &p, nil
}

// memApplications mirrors ApplicationRepository, including the pending partial unique index.
type memApplications struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.RentalApplication
	// skipExists hides pending rows from Exists, to exercise the index path.
	skipExists bool
}

func newMemApplications() *memApplications {
	return &memApplications{byID: map[primitive.ObjectID]models.RentalApplication{}}
}

func matchesApp(a models.RentalApplication, q db.ApplicationQuery) bool {
	return (q.Tenant.IsZero() || a.Tenant == q.Tenant) &&
		(q.Landlord.IsZero() || a.Landlord == q.Landlord) &&
		(q.Property.IsZero() || a.Property == q.Property) &&
		(q.Status == "" || a.Status == q.Status) &&
		(!q.OpenOnly || a.ClosedOutAt == nil)
}

func (m *memApplications) Insert(_ context.Context, app *models.RentalApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app.Status == models.ApplicationPending {
		for _, other := range m.byID {
			if other.Status == models.ApplicationPending && other.Tenant == app.Tenant && other.Property == app.Property {
				return db.DuplicateKeyError(db.PendingApplicationIndex)
			}
		}
	}
	if app.ID.IsZero() {
		app.ID = primitive.NewObjectID()
	}
	m.byID[app.ID] = *app
	return nil
}

func (m *memApplications) FindByID(_ context.Context, id primitive.ObjectID) (*models.RentalApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &a, nil
}

func (m *memApplications) Exists(_ context.Context, q db.ApplicationQuery) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipExists {
		return false, nil
	}
	for _, a := range m.byID {
		if matchesApp(a, q) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memApplications) Transition(_ context.Context, id primitive.ObjectID, from, to models.ApplicationStatus, at time.Time) (*models.RentalApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.Status != from {
		return nil, mongo.ErrNoDocuments
	}
	a.Status = to
	a.UpdatedAt = at
	m.byID[id] = a
	return &a, nil
}

func (m *memApplications) List(_ context.Context, q db.ApplicationQuery) ([]models.RentalApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.RentalApplication{}
	for _, a := range m.byID {
		if matchesApp(a, q) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memApplications) CloseOut(_ context.Context, tenant, property primitive.ObjectID, at time.Time) (*models.RentalApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.byID {
		if a.Tenant == tenant && a.Property == property && a.Status == models.ApplicationApproved && a.ClosedOutAt == nil {
			a.ClosedOutAt = &at
			a.UpdatedAt = at
			m.byID[id] = a
			return &a, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memApplications) ReopenTenancy(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.ClosedOutAt == nil {
		return mongo.ErrNoDocuments
	}
	a.ClosedOutAt = nil
	m.byID[id] = a
	return nil
}

func (m *memApplications) setStatus(id primitive.ObjectID, status models.ApplicationStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.byID[id]
	a.Status = status
	m.byID[id] = a
}

// memPayments mirrors PaymentRepository.
type memPayments struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Payment
	// insertErr makes every Insert fail.
	insertErr error
}

func newMemPayments() *memPayments {
	return &memPayments{byID: map[primitive.ObjectID]models.Payment{}}
}

func (m *memPayments) Insert(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memPayments) FindByID(_ context.Context, id primitive.ObjectID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &p, nil
}

func (m *memPayments) Transition(_ context.Context, id primitive.ObjectID, from []models.PaymentStatus, t db.PaymentTransition) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	allowed := false
	for _, s := range from {
		if p.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return nil, mongo.ErrNoDocuments
	}

	at, by := t.At, t.By
	p.Status = t.To
	p.UpdatedAt = at
	switch t.To {
	case models.PaymentHeld:
		p.VerifiedAt, p.VerifiedBy = &at, &by
	case models.PaymentReleased:
		p.ReleasedAt, p.ReleasedBy = &at, &by
	case models.PaymentRefunded:
		p.RefundedAt, p.RefundedBy = &at, &by
		p.RefundReason = t.RefundReason
	}
	if t.AdminNotes != "" {
		p.AdminNotes = t.AdminNotes
	}
	m.byID[id] = p
	return &p, nil
}

func (m *memPayments) SetAdminNotes(_ context.Context, id primitive.ObjectID, notes string, at time.Time) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	p.AdminNotes = notes
	p.UpdatedAt = at
	m.byID[id] = p
	return &p, nil
}

func (m *memPayments) List(_ context.Context, q db.PaymentQuery) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Payment{}
	for _, p := range m.byID {
		if (q.Tenant.IsZero() || p.Tenant == q.Tenant) &&
			(q.Landlord.IsZero() || p.Landlord == q.Landlord) &&
			(q.Status == "" || p.Status == q.Status) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPayments) StatsByStatus(_ context.Context) ([]models.PaymentStatusStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg := map[models.PaymentStatus]*models.PaymentStatusStats{}
	for _, p := range m.byID {
		row, ok := agg[p.Status]
		if !ok {
			row = &models.PaymentStatusStats{Status: p.Status}
			agg[p.Status] = row
		}
		row.Count++
		row.TotalAmount += p.Amount
	}
	out := []models.PaymentStatusStats{}
	for _, row := range agg {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

// captureSink collects audit events; err makes every Record fail.
type captureSink struct {
	mu     sync.Mutex
	events []models.EventLog
	err    error
}

func (c *captureSink) Record(_ context.Context, ev *models.EventLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, *ev)
	return c.err
}

func (c *captureSink) last() models.EventLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// fixture wires the services over in-memory stores.
type fixture struct {
	props    *memProperties
	apps     *memApplications
	payments *memPayments
	sink     *captureSink
	gate     *PropertyGate
	appSvc   IApplicationService
	paySvc   IPaymentService
	availSvc IAvailabilityService

	landlord models.Principal
	tenant   models.Principal
	admin    models.Principal
	property models.Property
}

func newFixture() *fixture {
	f := &fixture{
		props:    newMemProperties(),
		apps:     newMemApplications(),
		payments: newMemPayments(),
		sink:     &captureSink{},
		landlord: models.Principal{UserID: primitive.NewObjectID(), Email: "lara@example.com", Role: models.RoleLandlord},
		tenant:   models.Principal{UserID: primitive.NewObjectID(), Email: "tomi@example.com", Role: models.RoleTenant},
		admin:    models.Principal{UserID: primitive.NewObjectID(), Email: "ops@example.com", Role: models.RoleAdmin},
	}
	recorder := audit.NewRecorder(f.sink)
	f.gate = NewPropertyGate(f.props)
	f.appSvc = NewApplicationService(f.apps, f.gate, recorder)
	f.paySvc = NewPaymentService(f.payments, f.apps, f.gate, newFakeProofs(), recorder)
	f.availSvc = NewAvailabilityService(f.apps, f.gate, recorder)
	f.property = f.props.add(models.Property{
		Owner: f.landlord.UserID, Title: "Borrowdale cottage", Price: 900,
		RentPeriod: models.RentPeriodMonth, Available: true,
	})
	return f
}

func (f *fixture) submitInput() SubmitApplicationInput {
	return SubmitApplicationInput{
		PropertyID:    f.property.ID,
		MoveInDate:    time.Date(2030, time.March, 1, 0, 0, 0, 0, time.UTC),
		LeaseDuration: 12,
		Message:       "Quiet professional",
		TenantInfo:    models.TenantInfo{NumberOfOccupants: 2, Extra: map[string]any{"employer": "Acme"}},
	}
}

// approvedApplication runs submit and approve and returns the approved application.
func (f *fixture) approvedApplication() *models.RentalApplication {
	ctx := context.Background()
	app, err := f.appSvc.Submit(ctx, f.tenant, f.submitInput())
	if err != nil {
		panic(err)
	}
	app, err = f.appSvc.Approve(ctx, f.landlord, app.ID)
	if err != nil {
		panic(err)
	}
	return app
}
