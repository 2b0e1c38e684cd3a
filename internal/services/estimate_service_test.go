package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/apperr"
	"renthub/internal/models"
	"renthub/internal/pricing"
)

type mapCache struct {
	entries map[string]*pricing.Breakdown
	hits    int
}

func (c *mapCache) Get(_ context.Context, key string) (*pricing.Breakdown, bool) {
	b, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return b, ok
}

func (c *mapCache) Set(_ context.Context, key string, b *pricing.Breakdown) {
	c.entries[key] = b
}

func TestEstimateService_EstimateUsesCache(t *testing.T) {
	props := newMemProperties()
	p := props.add(models.Property{Price: 900, RentPeriod: models.RentPeriodMonth, Available: true})
	cache := &mapCache{entries: map[string]*pricing.Breakdown{}}
	svc := NewEstimateService(NewPropertyGate(props), cache)
	ctx := context.Background()

	in := time.Date(2030, time.June, 1, 0, 0, 0, 0, time.UTC)
	out := in.AddDate(0, 0, 30)

	first, err := svc.Estimate(ctx, p.ID, in, out, "usd")
	require.NoError(t, err)
	assert.Equal(t, 30, first.Duration.Days)
	assert.Len(t, cache.entries, 1)
	assert.Contains(t, cache.entries, estimateKey(p.ID, in, out, "USD"))

	second, err := svc.Estimate(ctx, p.ID, in, out, "USD")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.hits)
}

func TestEstimateService_Errors(t *testing.T) {
	props := newMemProperties()
	p := props.add(models.Property{Price: 50, RentPeriod: models.RentPeriodDay, Available: true})
	svc := NewEstimateService(NewPropertyGate(props), nil)
	ctx := context.Background()
	in := time.Date(2030, time.June, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Estimate(ctx, primitive.NewObjectID(), in, in.AddDate(0, 0, 3), "USD")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = svc.Estimate(ctx, p.ID, in, in, "USD")
	assert.True(t, errors.Is(err, apperr.ErrInvalidDateRange))

	_, err = svc.Estimate(ctx, p.ID, in, in.AddDate(0, 0, 3), "XYZ")
	assert.True(t, errors.Is(err, apperr.ErrUnsupportedCurrency))
}

func TestEstimateService_PricingAndValidation(t *testing.T) {
	props := newMemProperties()
	p := props.add(models.Property{Title: "Loft", Price: 70, RentPeriod: models.RentPeriodDay, Available: false})
	svc := NewEstimateService(NewPropertyGate(props), nil)
	ctx := context.Background()

	pp, err := svc.Pricing(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loft", pp.Title)
	assert.False(t, pp.Available)
	assert.NotEmpty(t, pp.Currencies)

	past := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	res, err := svc.ValidateDates(ctx, p.ID, past, past)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 2)
}
