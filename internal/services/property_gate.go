package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"renthub/internal/apperr"
	"renthub/internal/models"
)

// PropertyGate owns every write to a property's available flag. Each write carries the version that
// was read, so two managers can never interleave on the same property.
type PropertyGate struct {
	store IPropertyStore
}

// NewPropertyGate creates a gate over store.
func NewPropertyGate(store IPropertyStore) *PropertyGate {
	return &PropertyGate{store: store}
}

// Lookup returns the property or a NotFound error.
func (g *PropertyGate) Lookup(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	p, err := g.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "property", id)
	}
	return p, nil
}

// Withdraw takes an available property off the market. It fails with PropertyUnavailable when the
// property is already withdrawn or another writer changed it between the read and the write.
// The returned property carries the post-write version, which Undo needs.
func (g *PropertyGate) Withdraw(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	p, err := g.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Available {
		return nil, apperr.New(apperr.KindPropertyUnavailable, "property %s is not available", id.Hex())
	}
	updated, err := g.store.SetAvailability(ctx, id, p.Version, false)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.KindPropertyUnavailable, "property %s changed while being withdrawn", id.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw property %s: %w", id.Hex(), err)
	}
	return updated, nil
}

// Undo reverses a Withdraw, but only if nothing has written the property since.
func (g *PropertyGate) Undo(ctx context.Context, withdrawn *models.Property) error {
	_, err := g.store.SetAvailability(ctx, withdrawn.ID, withdrawn.Version, true)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.New(apperr.KindConflict, "property %s changed before withdrawal could be undone", withdrawn.ID.Hex())
	}
	return err
}

// EnsureWithdrawn marks the property unavailable. Already-unavailable properties are left alone.
func (g *PropertyGate) EnsureWithdrawn(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	return g.ensure(ctx, id, false)
}

// Restore puts the property back on the market. Already-available properties are left alone.
func (g *PropertyGate) Restore(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	return g.ensure(ctx, id, true)
}

// ensure drives the flag to want. A lost version race is re-read once: if the winner already
// produced the wanted value the call succeeds, otherwise it reports a Conflict.
func (g *PropertyGate) ensure(ctx context.Context, id primitive.ObjectID, want bool) (*models.Property, error) {
	p, err := g.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Available == want {
		return p, nil
	}
	updated, err := g.store.SetAvailability(ctx, id, p.Version, want)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to set availability of property %s: %w", id.Hex(), err)
	}

	p, err = g.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Available == want {
		return p, nil
	}
	return nil, apperr.New(apperr.KindConflict, "property %s was modified concurrently", id.Hex())
}
