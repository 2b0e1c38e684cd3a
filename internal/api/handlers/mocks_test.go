package handlers_test

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/api/middleware"
	"renthub/internal/db"
	"renthub/internal/models"
	"renthub/internal/pricing"
	"renthub/internal/services"
)

// --- Mocks ---

// MockEstimateService
type MockEstimateService struct {
	mock.Mock
}

func (m *MockEstimateService) Estimate(ctx context.Context, propertyID primitive.ObjectID, checkIn, checkOut time.Time, currency string) (*pricing.Breakdown, error) {
	args := m.Called(ctx, propertyID, checkIn, checkOut, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Breakdown), args.Error(1)
}

func (m *MockEstimateService) Pricing(ctx context.Context, propertyID primitive.ObjectID) (*services.PropertyPricing, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PropertyPricing), args.Error(1)
}

func (m *MockEstimateService) ValidateDates(ctx context.Context, propertyID primitive.ObjectID, checkIn, checkOut time.Time) (*pricing.ValidationResult, error) {
	args := m.Called(ctx, propertyID, checkIn, checkOut)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.ValidationResult), args.Error(1)
}

// MockApplicationService
type MockApplicationService struct {
	mock.Mock
}

func (m *MockApplicationService) app(args mock.Arguments) (*models.RentalApplication, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalApplication), args.Error(1)
}

func (m *MockApplicationService) apps(args mock.Arguments) ([]models.RentalApplication, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RentalApplication), args.Error(1)
}

func (m *MockApplicationService) Submit(ctx context.Context, actor models.Principal, in services.SubmitApplicationInput) (*models.RentalApplication, error) {
	return m.app(m.Called(ctx, actor, in))
}
func (m *MockApplicationService) Approve(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	return m.app(m.Called(ctx, actor, id))
}
func (m *MockApplicationService) Reject(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	return m.app(m.Called(ctx, actor, id))
}
func (m *MockApplicationService) Cancel(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	return m.app(m.Called(ctx, actor, id))
}
func (m *MockApplicationService) FindByID(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.RentalApplication, error) {
	return m.app(m.Called(ctx, actor, id))
}
func (m *MockApplicationService) ListForTenant(ctx context.Context, actor models.Principal) ([]models.RentalApplication, error) {
	return m.apps(m.Called(ctx, actor))
}
func (m *MockApplicationService) ListForLandlord(ctx context.Context, actor models.Principal) ([]models.RentalApplication, error) {
	return m.apps(m.Called(ctx, actor))
}
func (m *MockApplicationService) ListAll(ctx context.Context, actor models.Principal, status models.ApplicationStatus) ([]models.RentalApplication, error) {
	return m.apps(m.Called(ctx, actor, status))
}

// MockPaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) payment(args mock.Arguments) (*models.Payment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentService) payments(args mock.Arguments) ([]models.Payment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockPaymentService) Submit(ctx context.Context, actor models.Principal, in services.SubmitPaymentInput) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, in))
}
func (m *MockPaymentService) Verify(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id, notes))
}
func (m *MockPaymentService) Release(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id, notes))
}
func (m *MockPaymentService) Reject(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id, notes))
}
func (m *MockPaymentService) Refund(ctx context.Context, actor models.Principal, id primitive.ObjectID, reason string) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id, reason))
}
func (m *MockPaymentService) UpdateAdminNotes(ctx context.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id, notes))
}
func (m *MockPaymentService) FindByID(ctx context.Context, actor models.Principal, id primitive.ObjectID) (*models.Payment, error) {
	return m.payment(m.Called(ctx, actor, id))
}
func (m *MockPaymentService) ProofURL(ctx context.Context, actor models.Principal, id primitive.ObjectID) (string, error) {
	args := m.Called(ctx, actor, id)
	return args.String(0), args.Error(1)
}
func (m *MockPaymentService) ListForTenant(ctx context.Context, actor models.Principal) ([]models.Payment, error) {
	return m.payments(m.Called(ctx, actor))
}
func (m *MockPaymentService) ListForLandlord(ctx context.Context, actor models.Principal) ([]models.Payment, error) {
	return m.payments(m.Called(ctx, actor))
}
func (m *MockPaymentService) ListAll(ctx context.Context, actor models.Principal, status models.PaymentStatus) ([]models.Payment, error) {
	return m.payments(m.Called(ctx, actor, status))
}
func (m *MockPaymentService) Stats(ctx context.Context, actor models.Principal) (*services.PaymentStats, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PaymentStats), args.Error(1)
}

// MockAvailabilityService
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) ReviewEligibility(ctx context.Context, actor models.Principal, propertyID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, actor, propertyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAvailabilityService) MarkAvailableAfterReview(ctx context.Context, actor models.Principal, propertyID primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, actor, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

// MockEventLogService
type MockEventLogService struct {
	mock.Mock
}

func (m *MockEventLogService) List(ctx context.Context, actor models.Principal, q db.EventLogQuery) (*services.EventLogPage, error) {
	args := m.Called(ctx, actor, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.EventLogPage), args.Error(1)
}

func (m *MockEventLogService) Stats(ctx context.Context, actor models.Principal, start, end *time.Time) (*models.EventLogStats, error) {
	args := m.Called(ctx, actor, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventLogStats), args.Error(1)
}

func (m *MockEventLogService) MyActivity(ctx context.Context, actor models.Principal, page, limit int) (*services.EventLogPage, error) {
	args := m.Called(ctx, actor, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.EventLogPage), args.Error(1)
}

func (m *MockEventLogService) PurgeOlderThan(ctx context.Context, actor models.Principal, days int) (int64, error) {
	args := m.Called(ctx, actor, days)
	return args.Get(0).(int64), args.Error(1)
}

// --- Helpers ---

var (
	testTenant   = models.Principal{UserID: primitive.NewObjectID(), Email: "tomi@example.com", Role: models.RoleTenant}
	testLandlord = models.Principal{UserID: primitive.NewObjectID(), Email: "lara@example.com", Role: models.RoleLandlord}
	testAdmin    = models.Principal{UserID: primitive.NewObjectID(), Email: "ops@example.com", Role: models.RoleAdmin}
)

// newTestRouter returns an engine that authenticates every request as p.
func newTestRouter(p models.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextKeyPrincipal, p)
		c.Next()
	})
	return r
}
