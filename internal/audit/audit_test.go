package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/models"
)

type mockInserter struct {
	mock.Mock
}

func (m *mockInserter) Insert(ctx context.Context, ev *models.EventLog) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueAuditEvent(ctx context.Context, ev *models.EventLog) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type captureSink struct {
	mu     sync.Mutex
	events []*models.EventLog
	err    error
}

func (c *captureSink) Record(_ context.Context, ev *models.EventLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.err
}

func testActor() models.Principal {
	return models.Principal{UserID: primitive.NewObjectID(), Email: "ann@example.com", Role: models.RoleAdmin, IPAddress: "10.0.0.1"}
}

func TestRecorderStampsAndDelivers(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink)

	target := primitive.NewObjectID()
	ev := NewEvent(testActor(), models.EventPaymentVerified, models.TargetPayment, target, "Payment verified")
	ev.Status = ""
	rec.Record(context.Background(), ev)

	require.Len(t, sink.events, 1)
	got := sink.events[0]
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, models.EventSuccess, got.Status)
	assert.Equal(t, "ann@example.com", got.UserEmail)
	assert.Equal(t, models.RoleAdmin, got.UserRole)
	assert.Equal(t, target, got.TargetID)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
}

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	rec := NewRecorder(&captureSink{err: errors.New("mongo down")})
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), NewEvent(testActor(), models.EventPaymentReleased, models.TargetPayment, primitive.NewObjectID(), "x"))
	})
}

func TestRecorderRecoversPanics(t *testing.T) {
	rec := NewRecorder(SinkFunc(func(context.Context, *models.EventLog) error {
		panic("boom")
	}))
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), NewEvent(testActor(), models.EventPaymentReleased, models.TargetPayment, primitive.NewObjectID(), "x"))
	})
}

func TestRecorderNilSinkIsNoop(t *testing.T) {
	var nilRec *Recorder
	assert.NotPanics(t, func() {
		NewRecorder(nil).Record(context.Background(), &models.EventLog{})
		nilRec.Record(context.Background(), &models.EventLog{})
	})
}

func TestStoreSinkInserts(t *testing.T) {
	store := new(mockInserter)
	ev := &models.EventLog{EventType: models.EventApplicationSubmitted}
	store.On("Insert", mock.Anything, ev).Return(nil).Once()

	require.NoError(t, NewStoreSink(store).Record(context.Background(), ev))
	store.AssertExpectations(t)
}

func TestQueueSinkEnqueues(t *testing.T) {
	queue := new(mockEnqueuer)
	ev := &models.EventLog{EventType: models.EventApplicationApproved}
	queue.On("EnqueueAuditEvent", mock.Anything, ev).Return(errors.New("redis unavailable")).Once()

	err := NewQueueSink(queue).Record(context.Background(), ev)
	assert.EqualError(t, err, "redis unavailable")
	queue.AssertExpectations(t)
}

func TestFanoutSinkDeliversToAllAndJoinsErrors(t *testing.T) {
	a, b := &captureSink{}, &captureSink{err: errors.New("b failed")}
	fan := NewFanoutSink(2, a)
	fan.Add(b)
	fan.Add(NewLogSink(nil))
	defer fan.Close()

	err := fan.Record(context.Background(), &models.EventLog{EventType: models.EventPaymentRefunded})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b failed")
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestFanoutSinkContainsMemberPanics(t *testing.T) {
	ok := &captureSink{}
	fan := NewFanoutSink(2, ok, SinkFunc(func(context.Context, *models.EventLog) error {
		panic("sink blew up")
	}))
	defer fan.Close()

	err := fan.Record(context.Background(), &models.EventLog{EventType: models.EventPaymentReleased})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink blew up")
	assert.Len(t, ok.events, 1)

	assert.NotPanics(t, func() {
		NewRecorder(fan).Record(context.Background(), NewEvent(testActor(), models.EventPaymentReleased, models.TargetPayment, primitive.NewObjectID(), "x"))
	})
	assert.Len(t, ok.events, 2)
}

func TestFanoutSinkSingleMember(t *testing.T) {
	a := &captureSink{}
	fan := NewFanoutSink(0, a)
	defer fan.Close()

	require.NoError(t, fan.Record(context.Background(), &models.EventLog{}))
	assert.Len(t, a.events, 1)
}
