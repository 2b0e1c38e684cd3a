package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/pricing"
)

// IEstimateCache stores computed breakdowns. cache.EstimateCache satisfies it.
type IEstimateCache interface {
	Get(ctx context.Context, key string) (*pricing.Breakdown, bool)
	Set(ctx context.Context, key string, b *pricing.Breakdown)
}

// PropertyPricing is the public pricing view of a property.
type PropertyPricing struct {
	PropertyID primitive.ObjectID `json:"property_id"`
	Title      string             `json:"title"`
	Available  bool               `json:"available"`
	Terms      pricing.Terms      `json:"terms"`
	Currencies []pricing.Currency `json:"currencies"`
}

// IEstimateService prices stays. It never writes.
type IEstimateService interface {
	Estimate(ctx context.Context, propertyID primitive.ObjectID, checkIn, checkOut time.Time, currency string) (*pricing.Breakdown, error)
	Pricing(ctx context.Context, propertyID primitive.ObjectID) (*PropertyPricing, error)
	ValidateDates(ctx context.Context, propertyID primitive.ObjectID, checkIn, checkOut time.Time) (*pricing.ValidationResult, error)
}

type estimateService struct {
	gate  *PropertyGate
	cache IEstimateCache
	now   func() time.Time
}

// NewEstimateService creates a new EstimateService. cache may be nil.
func NewEstimateService(gate *PropertyGate, cache IEstimateCache) IEstimateService {
	return &estimateService{gate: gate, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

func estimateKey(propertyID primitive.ObjectID, checkIn, checkOut time.Time, currency string) string {
	return fmt.Sprintf("estimate:%s:%d:%d:%s", propertyID.Hex(), checkIn.UnixMilli(), checkOut.UnixMilli(), strings.ToUpper(currency))
}

// Estimate computes the cost breakdown for a stay, serving repeated requests from the cache.
func (s *estimateService) Estimate(ctx context.Context, propertyID primitive.ObjectID, checkIn, checkOut time.Time, currency string) (*pricing.Breakdown, error) {
	key := estimateKey(propertyID, checkIn, checkOut, currency)
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, key); ok {
			return b, nil
		}
	}

	p, err := s.gate.Lookup(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	b, err := pricing.Calculate(p, checkIn, checkOut, currency)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, b)
	}
	return b, nil
}

// Pricing returns the property's effective pricing after defaults.
func (s *estimateService) Pricing(ctx context.Context, propertyID primitive.ObjectID) (*PropertyPricing, error) {
	p, err := s.gate.Lookup(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return &PropertyPricing{
		PropertyID: p.ID,
		Title:      p.Title,
		Available:  p.Available,
		Terms:      pricing.ResolveTerms(p),
		Currencies: pricing.Currencies(),
	}, nil
}

// ValidateDates lists every rule the proposed stay breaks.
func (s *estimateService) ValidateDates(ctx context.Context, propertyID primitive.ObjectID, checkIn, checkOut time.Time) (*pricing.ValidationResult, error) {
	p, err := s.gate.Lookup(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	res := pricing.ValidateDates(p, checkIn, checkOut, s.now())
	return &res, nil
}
